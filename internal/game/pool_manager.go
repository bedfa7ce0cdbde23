package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/eightball/internal/config"
	"github.com/playmatatu/eightball/internal/models"
)

var logger = log.WithPrefix("pool")

var ErrSnapshotUnavailable = errors.New("snapshot cache disabled")

const (
	snapshotTTL        = time.Hour
	TableEventsChannel = "table_events"
	idleSetKey         = "table_idle"
	ledgerQueueSize    = 256
	redisQueueSize     = 512
	redisJobTimeout    = 2 * time.Second
)

// Ledger is the part of the results store the manager appends to.
type Ledger interface {
	StartRack(ctx context.Context, tableID, mode string, startedAt time.Time) (int64, error)
	RecordShot(ctx context.Context, shot models.Shot) error
	FinishRack(ctx context.Context, rackID int64, winner int, reason string, finishedAt time.Time) error
}

// Broadcaster pushes table events to connected clients.
type Broadcaster interface {
	BroadcastToTable(tableID string, ev Event)
}

// RemoteEvent is the pub/sub envelope on TableEventsChannel. Instances skip
// their own messages since they already delivered them locally.
type RemoteEvent struct {
	Origin  string `json:"origin"`
	TableID string `json:"table_id"`
	Event   Event  `json:"event"`
}

type ledgerJob func(ctx context.Context)

type redisJob func(ctx context.Context, rdb *redis.Client)

// Manager owns every live table, drives their clocks and mirrors settled
// state into Redis and the ledger.
type Manager struct {
	tables map[string]*Session
	mu     sync.RWMutex

	cfg         *config.Config
	tuning      config.Tuning
	rdb         *redis.Client // nil disables snapshots and fan-out
	ledger      Ledger        // nil disables the ledger
	broadcaster Broadcaster
	instanceID  string

	jobs  chan ledgerJob
	racks map[string]*rackRecord // ledger worker only

	redisJobs chan redisJob

	scheduler Scheduler
	seed      func() int64
}

type rackRecord struct {
	id    int64
	shots int
}

func NewManager(cfg *config.Config, tuning config.Tuning, rdb *redis.Client, ledger Ledger) *Manager {
	return &Manager{
		tables:     make(map[string]*Session),
		cfg:        cfg,
		tuning:     tuning,
		rdb:        rdb,
		ledger:     ledger,
		instanceID: uuid.NewString(),
		jobs:       make(chan ledgerJob, ledgerQueueSize),
		racks:      make(map[string]*rackRecord),
		redisJobs:  make(chan redisJob, redisQueueSize),
		scheduler:  AfterFuncScheduler,
		seed:       func() int64 { return time.Now().UnixNano() },
	}
}

// SetBroadcaster wires the realtime hub.
func (m *Manager) SetBroadcaster(b Broadcaster) {
	m.mu.Lock()
	m.broadcaster = b
	m.mu.Unlock()
}

// InstanceID identifies this process on the pub/sub channel.
func (m *Manager) InstanceID() string {
	return m.instanceID
}

func (m *Manager) Tuning() config.Tuning {
	return m.tuning
}

// CreateTable racks a new table in the given mode.
func (m *Manager) CreateTable(mode Mode) (*Session, error) {
	if _, ok := ParseMode(string(mode)); !ok {
		return nil, ErrInvalidMode
	}

	id := uuid.NewString()
	s := NewSession(id, SessionOptions{
		Mode:      mode,
		Tuning:    m.tuning,
		AIDelay:   time.Duration(m.cfg.AIThinkMillis) * time.Millisecond,
		Scheduler: m.scheduler,
		Rand:      rand.New(rand.NewSource(m.seed())),
	})
	s.SetListener(m.handleEvent)

	m.mu.Lock()
	m.tables[id] = s
	m.mu.Unlock()

	state := s.State()
	m.enqueueRackStart(id, state)
	m.saveSnapshot(state)
	m.Touch(id)

	logger.Info("table created", "table", id, "mode", mode)
	return s, nil
}

// Get returns a live table.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.tables[id]
	if !ok {
		return nil, ErrTableNotFound
	}
	return s, nil
}

// Remove closes a table. The last snapshot stays in Redis until it expires.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.tables[id]
	delete(m.tables, id)
	m.mu.Unlock()
	if !ok {
		return false
	}

	s.Close()
	if b := m.currentBroadcaster(); b != nil {
		b.BroadcastToTable(id, Event{Type: EventClosed, TableID: id})
	}
	m.publish(Event{Type: EventClosed, TableID: id})
	m.enqueueRedis(func(ctx context.Context, rdb *redis.Client) {
		if err := rdb.ZRem(ctx, idleSetKey, id).Err(); err != nil {
			logger.Warn("idle set remove failed", "table", id, "error", err)
		}
	})
	m.enqueue(func(context.Context) { delete(m.racks, id) })

	logger.Info("table removed", "table", id)
	return true
}

// Count returns the number of live tables.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables)
}

func (m *Manager) sessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.tables))
	for _, s := range m.tables {
		out = append(out, s)
	}
	return out
}

// Run ticks every table at TickHz and drains the ledger and Redis queues
// until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	hz := m.cfg.TickHz
	if hz <= 0 {
		hz = 60
	}
	go m.runLedger(ctx)
	go m.runRedis(ctx)

	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()
	logger.Info("table loop started", "hz", hz)

	for {
		select {
		case <-ctx.Done():
			for _, s := range m.sessions() {
				s.Close()
			}
			logger.Info("table loop stopping")
			return
		case <-ticker.C:
			m.TickAll()
		}
	}
}

// TickAll advances every table by one frame.
func (m *Manager) TickAll() {
	for _, s := range m.sessions() {
		s.Tick()
	}
}

// Touch pushes the table's idle deadline forward.
func (m *Manager) Touch(id string) {
	if m.rdb == nil {
		return
	}
	deadline := time.Now().Add(m.idleTimeout()).Unix()
	m.enqueueRedis(func(ctx context.Context, rdb *redis.Client) {
		if err := rdb.ZAdd(ctx, idleSetKey, redis.Z{Score: float64(deadline), Member: id}).Err(); err != nil {
			logger.Warn("idle touch failed", "table", id, "error", err)
		}
	})
}

func (m *Manager) idleTimeout() time.Duration {
	minutes := m.cfg.TableIdleMinutes
	if minutes <= 0 {
		minutes = 30
	}
	return time.Duration(minutes) * time.Minute
}

// ExpireIdle removes tables with no accepted command since now minus the idle timeout.
func (m *Manager) ExpireIdle(now time.Time) []string {
	cutoff := now.Add(-m.idleTimeout())
	var expired []string
	for _, s := range m.sessions() {
		if s.LastActivity().Before(cutoff) {
			expired = append(expired, s.ID)
		}
	}
	for _, id := range expired {
		m.Remove(id)
	}
	return expired
}

func (m *Manager) currentBroadcaster() Broadcaster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.broadcaster
}

// handleEvent is every table's listener.
func (m *Manager) handleEvent(ev Event) {
	if b := m.currentBroadcaster(); b != nil {
		b.BroadcastToTable(ev.TableID, ev)
	}

	switch ev.Type {
	case EventShotResult:
		m.saveSnapshot(*ev.State)
		m.publish(ev)
		m.enqueueShot(ev)
		m.Touch(ev.TableID)
	case EventRack:
		m.saveSnapshot(*ev.State)
		m.publish(ev)
		m.enqueueRackStart(ev.TableID, *ev.State)
		m.Touch(ev.TableID)
	case EventMode:
		m.saveSnapshot(*ev.State)
		m.publish(ev)
		m.Touch(ev.TableID)
	case EventAIShot:
		m.publish(ev)
	}
}

func snapshotKey(id string) string {
	return "table:" + id + ":state"
}

// saveSnapshot caches the last settled state of a table.
func (m *Manager) saveSnapshot(state TableState) {
	if m.rdb == nil {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		logger.Error("snapshot marshal failed", "table", state.TableID, "error", err)
		return
	}
	id := state.TableID
	m.enqueueRedis(func(ctx context.Context, rdb *redis.Client) {
		if err := rdb.SetEx(ctx, snapshotKey(id), data, snapshotTTL).Err(); err != nil {
			logger.Warn("snapshot save failed", "table", id, "error", err)
		}
	})
}

// LoadSnapshot returns the cached JSON state of a table.
func (m *Manager) LoadSnapshot(ctx context.Context, id string) (json.RawMessage, error) {
	if m.rdb == nil {
		return nil, ErrSnapshotUnavailable
	}
	data, err := m.rdb.Get(ctx, snapshotKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot load failed: %w", err)
	}
	return json.RawMessage(data), nil
}

func (m *Manager) publish(ev Event) {
	if m.rdb == nil {
		return
	}
	data, err := json.Marshal(RemoteEvent{Origin: m.instanceID, TableID: ev.TableID, Event: ev})
	if err != nil {
		return
	}
	m.enqueueRedis(func(ctx context.Context, rdb *redis.Client) {
		if err := rdb.Publish(ctx, TableEventsChannel, data).Err(); err != nil {
			logger.Warn("publish failed", "table", ev.TableID, "type", ev.Type, "error", err)
		}
	})
}

// enqueueRedis hands a write to the Redis worker. It never blocks the caller,
// which is usually the table loop.
func (m *Manager) enqueueRedis(job redisJob) {
	if m.rdb == nil {
		return
	}
	select {
	case m.redisJobs <- job:
	default:
		logger.Warn("redis queue full, dropping write")
	}
}

// runRedis applies snapshot, pub/sub and idle-set writes in order.
func (m *Manager) runRedis(ctx context.Context) {
	if m.rdb == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-m.redisJobs:
			jobCtx, cancel := context.WithTimeout(ctx, redisJobTimeout)
			job(jobCtx, m.rdb)
			cancel()
		}
	}
}

func (m *Manager) enqueue(job ledgerJob) {
	if m.ledger == nil {
		return
	}
	select {
	case m.jobs <- job:
	default:
		logger.Warn("ledger queue full, dropping write")
	}
}

func (m *Manager) enqueueRackStart(tableID string, state TableState) {
	mode := string(state.Mode)
	started := state.UpdatedAt
	m.enqueue(func(ctx context.Context) {
		id, err := m.ledger.StartRack(ctx, tableID, mode, started)
		if err != nil {
			logger.Error("ledger start rack failed", "table", tableID, "error", err)
			delete(m.racks, tableID)
			return
		}
		m.racks[tableID] = &rackRecord{id: id}
	})
}

func (m *Manager) enqueueShot(ev Event) {
	out := *ev.Outcome
	tableID := ev.TableID
	pocketed, _ := json.Marshal(out.Telemetry.PocketedThisShot)
	now := time.Now()

	m.enqueue(func(ctx context.Context) {
		rec, ok := m.racks[tableID]
		if !ok {
			return
		}
		rec.shots++
		err := m.ledger.RecordShot(ctx, models.Shot{
			RackID:      rec.id,
			ShotNumber:  rec.shots,
			Player:      int(out.Shooter),
			FirstHit:    out.Telemetry.FirstObjectHit,
			RailContact: out.Telemetry.RailContactedAfterHit,
			Pocketed:    string(pocketed),
			Scratch:     out.Telemetry.Scratch,
			Foul:        string(out.Foul),
			CreatedAt:   now,
		})
		if err != nil {
			logger.Error("ledger record shot failed", "table", tableID, "rack", rec.id, "error", err)
		}
		if out.GameEnd != nil {
			if err := m.ledger.FinishRack(ctx, rec.id, int(out.GameEnd.Winner), out.GameEnd.Reason, now); err != nil {
				logger.Error("ledger finish rack failed", "table", tableID, "rack", rec.id, "error", err)
			}
			delete(m.racks, tableID)
		}
	})
}

// runLedger applies ledger writes in order on one goroutine.
func (m *Manager) runLedger(ctx context.Context) {
	if m.ledger == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-m.jobs:
			jobCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			job(jobCtx)
			cancel()
		}
	}
}
