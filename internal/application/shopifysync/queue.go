package shopifysync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Task unidad de trabajo en segundo plano. Run debe ser idempotente: puede ejecutarse hasta MaxAttempts veces.
type Task struct {
	Name  string
	OrgID string
	Ref   string
	Run   func(ctx context.Context) error

	attempt int
}

// QueueConfig parámetros de la cola.
type QueueConfig struct {
	Workers     int
	Size        int
	Timeout     time.Duration
	MaxAttempts int
	RetryBase   time.Duration
}

// QueueStats contadores acumulados desde el arranque.
type QueueStats struct {
	Enqueued  int64 `json:"enqueued"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Retried   int64 `json:"retried"`
	Dropped   int64 `json:"dropped"`
	Pending   int   `json:"pending"`
}

// Queue cola acotada con N workers. Enqueue nunca bloquea: si está llena descarta y lo registra.
type Queue struct {
	cfg   QueueConfig
	log   zerolog.Logger
	tasks chan Task

	mu      sync.RWMutex
	running bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	retries sync.WaitGroup

	enqueued, succeeded, failed, retried, dropped atomic.Int64
}

// NewQueue construye la cola; Start lanza los workers.
func NewQueue(cfg QueueConfig, log zerolog.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Size <= 0 {
		cfg.Size = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	return &Queue{cfg: cfg, log: log, tasks: make(chan Task, cfg.Size)}
}

// Start lanza los workers. Llamadas repetidas no tienen efecto.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running || q.closed {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.running = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.log.Info().Int("workers", q.cfg.Workers).Int("size", q.cfg.Size).Msg("cola de sincronización iniciada")
}

// Stop deja de aceptar tareas, espera a que los workers vacíen la cola y termina.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.retries.Wait()

	q.mu.Lock()
	close(q.tasks)
	cancel := q.cancel
	q.mu.Unlock()

	q.wg.Wait()
	if cancel != nil {
		cancel()
	}
	q.log.Info().Interface("stats", q.Stats()).Msg("cola de sincronización detenida")
}

// Enqueue agrega la tarea sin bloquear. Devuelve false si fue descartada.
func (q *Queue) Enqueue(t Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.dropped.Add(1)
		q.log.Warn().Str("task", t.Name).Str("org_id", t.OrgID).Str("ref", t.Ref).Msg("cola cerrada, tarea descartada")
		return false
	}
	select {
	case q.tasks <- t:
		q.enqueued.Add(1)
		return true
	default:
		q.dropped.Add(1)
		q.log.Warn().Str("task", t.Name).Str("org_id", t.OrgID).Str("ref", t.Ref).Msg("cola llena, tarea descartada")
		return false
	}
}

// Stats instantánea de los contadores.
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Enqueued:  q.enqueued.Load(),
		Succeeded: q.succeeded.Load(),
		Failed:    q.failed.Load(),
		Retried:   q.retried.Load(),
		Dropped:   q.dropped.Load(),
		Pending:   len(q.tasks),
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for t := range q.tasks {
		q.execute(ctx, t, id)
	}
}

func (q *Queue) execute(ctx context.Context, t Task, worker int) {
	t.attempt++
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.cfg.Timeout)
	err := safeRun(runCtx, t)
	cancel()
	if err == nil {
		q.succeeded.Add(1)
		return
	}
	ev := q.log.Warn().Err(err).Str("task", t.Name).Str("org_id", t.OrgID).Str("ref", t.Ref).
		Int("attempt", t.attempt).Int("worker", worker)
	if t.attempt >= q.cfg.MaxAttempts {
		q.failed.Add(1)
		ev.Msg("tarea fallida, sin más reintentos")
		return
	}
	ev.Msg("tarea fallida, se reintentará")
	q.scheduleRetry(ctx, t)
}

// scheduleRetry reencola tras base * intento². Si la cola se cerró mientras tanto, la tarea se descarta.
func (q *Queue) scheduleRetry(ctx context.Context, t Task) {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		q.failed.Add(1)
		return
	}
	q.retries.Add(1)
	q.mu.RUnlock()

	q.retried.Add(1)
	delay := q.cfg.RetryBase * time.Duration(t.attempt*t.attempt)
	go func() {
		defer q.retries.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		q.requeue(t)
	}()
}

// requeue como Enqueue pero válido durante Stop, antes de cerrar el canal.
func (q *Queue) requeue(t Task) {
	select {
	case q.tasks <- t:
	default:
		q.dropped.Add(1)
		q.log.Warn().Str("task", t.Name).Str("org_id", t.OrgID).Str("ref", t.Ref).Msg("cola llena, reintento descartado")
	}
}

func safeRun(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic en tarea %s: %v", t.Name, r)
		}
	}()
	return t.Run(ctx)
}
