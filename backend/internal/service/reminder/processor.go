/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-04 09:31:50
 * @FilePath: \shift-handover-log\backend\internal\service\reminder\processor.go
 * @LastEditTime: 2026-10-08 16:20:13
 */
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	domain "shift-handover-log/backend/internal/domain/shiftlog"
	"shift-handover-log/backend/internal/infra/lock"
	"shift-handover-log/backend/internal/infra/metrics"

	"go.uber.org/zap"
)

const (
	defaultInterval = 2 * time.Minute
	lockKey         = "reminder-sweep"
)

// Store 是扫描所需的存储能力。
type Store interface {
	ListDueReminders(ctx context.Context, now time.Time) ([]uint, error)
	ReleaseReminder(ctx context.Context, id uint, now time.Time) (bool, error)
}

// Config 配置扫描周期与租约时长。
type Config struct {
	Interval time.Duration
	LockTTL  time.Duration
}

// SweepResult 描述一轮扫描的结果。
type SweepResult struct {
	Due      int
	Released int
	Skipped  bool // 其他实例持有租约，本轮未执行
}

// Processor 周期性地把提醒已到期的日志恢复为活动状态，让存储中的标记与有效状态保持最终一致。
// 查询侧不依赖它的进度。
type Processor struct {
	store  Store
	locker lock.Locker
	cfg    Config
	logger *zap.SugaredLogger
	clock  func() time.Time

	sweepMu sync.Mutex
	started atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewProcessor 构造提醒处理器；locker 为空时使用进程内锁。
func NewProcessor(store Store, locker lock.Locker, cfg Config, logger *zap.SugaredLogger, clock func() time.Time) *Processor {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.Interval
	}
	if locker == nil {
		locker = lock.LocalLocker{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Processor{
		store:  store,
		locker: locker,
		cfg:    cfg,
		logger: logger.With("component", "reminder.processor"),
		clock:  clock,
	}
}

// Start 立即执行一次扫描，然后按固定周期运行，直到 ctx 取消或调用 Stop。重复调用无效。
func (p *Processor) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	p.logger.Infow("reminder processor started", "interval", p.cfg.Interval)
	ticker := time.NewTicker(p.cfg.Interval)
	go func() {
		defer close(p.done)
		defer ticker.Stop()
		p.tick(loopCtx)
		for {
			select {
			case <-loopCtx.Done():
				p.logger.Infow("reminder processor stopped")
				return
			case <-ticker.C:
				p.tick(loopCtx)
			}
		}
	}()
}

// Stop 停止周期任务并等待当前扫描结束。
func (p *Processor) Stop() {
	if !p.started.Load() || p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

// tick 执行一轮扫描，错误只记录日志，下一轮重试。
func (p *Processor) tick(ctx context.Context) {
	if _, err := p.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Errorw("reminder sweep failed", "error", err)
	}
}

// RunOnce 同步执行一轮扫描，与周期任务互斥。
func (p *Processor) RunOnce(ctx context.Context) (SweepResult, error) {
	p.sweepMu.Lock()
	defer p.sweepMu.Unlock()

	started := time.Now()
	release, ok, err := p.locker.TryAcquire(ctx, lockKey, p.cfg.LockTTL)
	if err != nil {
		metrics.ObserveReminderSweep("error", 0, time.Since(started))
		return SweepResult{}, fmt.Errorf("acquire sweep lease: %w", err)
	}
	if !ok {
		metrics.ObserveReminderSweep("skipped", 0, time.Since(started))
		p.logger.Debugw("reminder sweep skipped, lease held elsewhere")
		return SweepResult{Skipped: true}, nil
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			p.logger.Warnw("release sweep lease failed", "error", err)
		}
	}()

	result, err := p.sweep(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveReminderSweep(outcome, result.Released, time.Since(started))
	return result, err
}

func (p *Processor) sweep(ctx context.Context) (SweepResult, error) {
	now := domain.NormalizeTime(p.clock())
	ids, err := p.store.ListDueReminders(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list due reminders: %w", err)
	}

	result := SweepResult{Due: len(ids)}
	var errs []error
	for _, id := range ids {
		changed, err := p.store.ReleaseReminder(ctx, id, now)
		if err != nil {
			p.logger.Warnw("release reminder failed", "entry_id", id, "error", err)
			errs = append(errs, fmt.Errorf("entry %d: %w", id, err))
			continue
		}
		if changed {
			result.Released++
		}
	}
	if result.Released > 0 {
		p.logger.Infow("reminders processed, entries activated", "count", result.Released)
	}
	return result, errors.Join(errs...)
}
