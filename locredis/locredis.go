package locredis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ashikmeerankutty/urlnav"
)

// opTimeout bounds every redis round trip issued by a Location.
const opTimeout = 5 * time.Second

// locationState is the persisted shape of a session's location.
type locationState struct {
	Path      string     `json:"path"`
	Query     url.Values `json:"query,omitempty"`
	Replacing bool       `json:"replacing,omitempty"`
}

// completionEvent is broadcast over pub/sub when a location change commits.
// Origin identifies the publishing Location instance so it can skip its own
// broadcast; local subscribers already ran synchronously.
type completionEvent struct {
	Origin string     `json:"origin"`
	Path   string     `json:"path"`
	Query  url.Values `json:"query,omitempty"`
}

// commands is the slice of the redis command API a Location issues. A
// *redis.Client satisfies it.
type commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Location is a redis-backed urlnav.Location. The path, query and replacing
// flag of a session live under a single key, and completion events are
// broadcast on a pub/sub channel so listeners in every process holding the
// same session observe them.
type Location struct {
	id      string
	session string
	client  commands
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	pubsub *redis.PubSub
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   locationState
	subs    map[int]func(urlnav.Snapshot)
	nextSub int
}

var _ urlnav.Location = (*Location)(nil)

// Option configures a Location.
type Option func(*Location)

// WithSession pins the session identifier. The default is a random UUID,
// which yields a private location; share the identifier to share the
// location across processes.
func WithSession(session string) Option {
	return func(l *Location) {
		l.session = session
	}
}

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Location) {
		l.logger = logger
	}
}

// New connects a Location to the given redis client, loading any state the
// session already has and subscribing to its completion events.
func New(client *redis.Client, opts ...Option) (*Location, error) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Location{
		id:      uuid.NewString(),
		session: uuid.NewString(),
		client:  client,
		logger:  zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[int]func(urlnav.Snapshot)),
	}
	for _, opt := range opts {
		opt(l)
	}

	state, err := l.load()
	if err != nil {
		cancel()
		return nil, err
	}
	l.state = state

	l.pubsub = client.Subscribe(ctx, doneChannel(l.session))
	l.wg.Add(1)
	go l.receiveLoop(l.pubsub.Channel())

	l.logger.Info("location session attached",
		zap.String("session", l.session),
		zap.String("path", state.Path),
	)
	return l, nil
}

// Session returns the session identifier this location is bound to.
func (l *Location) Session() string { return l.session }

// Close stops the completion listener and releases the pub/sub connection.
// The persisted state stays in redis for the next attach.
func (l *Location) Close() error {
	l.cancel()
	err := l.pubsub.Close()
	l.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close completion listener: %w", err)
	}
	l.logger.Info("location session detached", zap.String("session", l.session))
	return nil
}

// load fetches the persisted session state, defaulting to the root path for
// a fresh session.
func (l *Location) load() (locationState, error) {
	ctx, cancel := context.WithTimeout(l.ctx, opTimeout)
	defer cancel()

	data, err := l.client.Get(ctx, stateKey(l.session)).Bytes()
	if err == redis.Nil {
		return locationState{Path: "/", Query: url.Values{}}, nil
	}
	if err != nil {
		return locationState{}, fmt.Errorf("failed to load location state: %w", err)
	}

	state, err := decodeState(data)
	if err != nil {
		return locationState{}, fmt.Errorf("failed to decode location state: %w", err)
	}
	return state, nil
}

// Path returns the current path.
func (l *Location) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Path
}

// SetPath sets the path and persists the state.
func (l *Location) SetPath(path string) {
	l.mu.Lock()
	l.state.Path = path
	state := l.state
	l.mu.Unlock()
	l.persist(state)
}

// Query returns a copy of the current query parameters.
func (l *Location) Query() url.Values {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneValues(l.state.Query)
}

// SetQuery replaces the query parameters and persists the state.
func (l *Location) SetQuery(q url.Values) {
	l.mu.Lock()
	l.state.Query = cloneValues(q)
	if l.state.Query == nil {
		l.state.Query = url.Values{}
	}
	state := l.state
	l.mu.Unlock()
	l.persist(state)
}

// SetParam sets one query parameter and persists the state.
func (l *Location) SetParam(name string, values ...string) {
	l.mu.Lock()
	l.state.Query[name] = append([]string(nil), values...)
	state := l.state
	l.mu.Unlock()
	l.persist(state)
}

// DeleteParam removes one query parameter and persists the state.
func (l *Location) DeleteParam(name string) {
	l.mu.Lock()
	delete(l.state.Query, name)
	state := l.state
	l.mu.Unlock()
	l.persist(state)
}

// Replace marks the in-flight change as history-replacing.
func (l *Location) Replace() {
	l.mu.Lock()
	l.state.Replacing = true
	state := l.state
	l.mu.Unlock()
	l.persist(state)
}

// Replacing reports whether the in-flight change replaces history.
func (l *Location) Replacing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Replacing
}

// OnChangeDone subscribes fn to completed location changes, local and
// remote. The returned cancel removes the subscription and may be called
// more than once.
func (l *Location) OnChangeDone(fn func(urlnav.Snapshot)) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

// Complete commits the in-flight change: the replacing flag resets, the
// state persists, local subscribers run synchronously and the completion is
// broadcast to every other process attached to the session.
func (l *Location) Complete() {
	l.mu.Lock()
	l.state.Replacing = false
	state := l.state
	snap := urlnav.Snapshot{Path: state.Path, Query: cloneValues(state.Query)}
	fns := make([]func(urlnav.Snapshot), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	l.persist(state)
	l.broadcast(snap)

	for _, fn := range fns {
		fn(snap)
	}
}

// persist writes the session state. Failures are logged, not returned; the
// in-memory state remains authoritative for this process.
func (l *Location) persist(state locationState) {
	ctx, cancel := context.WithTimeout(l.ctx, opTimeout)
	defer cancel()

	data, err := encodeState(state)
	if err != nil {
		l.logger.Error("failed to encode location state",
			zap.String("session", l.session),
			zap.Error(err),
		)
		return
	}
	if err := l.client.Set(ctx, stateKey(l.session), data, 0).Err(); err != nil {
		l.logger.Error("failed to persist location state",
			zap.String("session", l.session),
			zap.Error(err),
		)
	}
}

// broadcast publishes a completion event for the other processes attached
// to this session.
func (l *Location) broadcast(snap urlnav.Snapshot) {
	ctx, cancel := context.WithTimeout(l.ctx, opTimeout)
	defer cancel()

	data, err := encodeEvent(completionEvent{Origin: l.id, Path: snap.Path, Query: snap.Query})
	if err != nil {
		l.logger.Error("failed to encode completion event",
			zap.String("session", l.session),
			zap.Error(err),
		)
		return
	}
	if err := l.client.Publish(ctx, doneChannel(l.session), data).Err(); err != nil {
		l.logger.Error("failed to broadcast completion event",
			zap.String("session", l.session),
			zap.Error(err),
		)
	}
}

// receiveLoop dispatches remote completion events to local subscribers.
func (l *Location) receiveLoop(ch <-chan *redis.Message) {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			l.logger.Debug("completion listener stopped", zap.String("session", l.session))
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			ev, err := decodeEvent([]byte(msg.Payload))
			if err != nil {
				l.logger.Error("failed to decode completion event",
					zap.String("session", l.session),
					zap.Error(err),
				)
				continue
			}
			if ev.Origin == l.id {
				// Our own broadcast; local subscribers already ran.
				continue
			}
			l.dispatch(urlnav.Snapshot{Path: ev.Path, Query: ev.Query})
		}
	}
}

// dispatch runs local subscribers for a remote completion event.
func (l *Location) dispatch(snap urlnav.Snapshot) {
	l.mu.Lock()
	l.state.Path = snap.Path
	l.state.Query = cloneValues(snap.Query)
	if l.state.Query == nil {
		l.state.Query = url.Values{}
	}
	l.state.Replacing = false
	fns := make([]func(urlnav.Snapshot), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// stateKey is the redis key holding a session's location state.
func stateKey(session string) string {
	return "urlnav:loc:" + session
}

// doneChannel is the pub/sub channel carrying a session's completions.
func doneChannel(session string) string {
	return "urlnav:loc:" + session + ":done"
}

func encodeState(state locationState) ([]byte, error) {
	return json.Marshal(state)
}

func decodeState(data []byte) (locationState, error) {
	var state locationState
	if err := json.Unmarshal(data, &state); err != nil {
		return locationState{}, err
	}
	if state.Query == nil {
		state.Query = url.Values{}
	}
	return state, nil
}

func encodeEvent(ev completionEvent) ([]byte, error) {
	return json.Marshal(ev)
}

func decodeEvent(data []byte) (completionEvent, error) {
	var ev completionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return completionEvent{}, err
	}
	return ev, nil
}

// cloneValues copies query parameters one level deep. Nil stays nil.
func cloneValues(q url.Values) url.Values {
	if q == nil {
		return nil
	}
	out := make(url.Values, len(q))
	for k, vs := range q {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
