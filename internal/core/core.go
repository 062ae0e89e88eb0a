package core

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/roach88/qstream/internal/ident"
	"github.com/roach88/qstream/internal/object"
	"github.com/roach88/qstream/internal/signal"
)

// DefaultRequestWindow is how long a repository request suppresses
// identical requests.
const DefaultRequestWindow = 5 * time.Second

// RepoRequest asks the application to create a repository with a given id.
type RepoRequest struct {
	ID uuid.UUID
	// Remote is set when the repository mirrors one owned by a peer.
	Remote bool
}

// Core is the registry anchor: identity, repository table, default
// repository, and message routing.
type Core struct {
	cfg       Config
	transport Transport
	inbox     *Inbox
	ctx       context.Context

	repos       map[string]*object.Repository
	defaultRepo *object.Repository
	repoSeq     uint16

	requests *gocache.Cache

	// DefaultRepoChanged fires when the default repository changes.
	DefaultRepoChanged signal.Notifier
	// ReposChanged fires when a repository joins or leaves the table.
	ReposChanged signal.Notifier
	// RepoRequested carries requests to create a repository.
	RepoRequested signal.Signal[RepoRequest]
}

// Option configures a Core.
type Option func(*Core)

// WithTransport sets the transport for messages leaving the process.
func WithTransport(t Transport) Option {
	return func(c *Core) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithRequestWindow sets how long a repository request suppresses
// identical requests.
func WithRequestWindow(d time.Duration) Option {
	return func(c *Core) {
		c.requests = gocache.New(d, 2*d)
	}
}

// New creates a Core for cfg.
func New(cfg Config, opts ...Option) *Core {
	c := &Core{
		cfg:       cfg,
		transport: discardTransport{},
		inbox:     NewInbox(),
		ctx:       context.Background(),
		repos:     make(map[string]*object.Repository),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.requests == nil {
		c.requests = gocache.New(DefaultRequestWindow, 2*DefaultRequestWindow)
	}
	return c
}

// Config returns the registry configuration.
func (c *Core) Config() Config { return c.cfg }

// ID returns the local core id.
func (c *Core) ID() uuid.UUID { return c.cfg.ID }

// IDString returns the core id in identity record form.
func (c *Core) IDString() string { return string(FormatIdentity(c.cfg.ID)) }

// Inbox returns the queue for inbound transport traffic.
func (c *Core) Inbox() *Inbox { return c.inbox }

// NewRepository creates a repository scoped to the core prefix and adds it
// to the table. Successive calls number the repository segment 1, 2, ...
func (c *Core) NewRepository(name string) *object.Repository {
	var id uuid.UUID
	for {
		c.repoSeq++
		id = repositoryID(c.cfg.ID, c.repoSeq)
		if _, taken := c.repos[ident.Key(id)]; !taken {
			break
		}
	}
	repo := object.NewRepository(nil, object.WithID(id), object.WithName(name))
	c.AddRepo(repo)
	return repo
}

// AddRepo adds repo to the table of known repositories and routes its
// outbound messages. Ignores nil and repositories already known by id.
func (c *Core) AddRepo(repo *object.Repository) bool {
	if repo == nil {
		return false
	}
	key := repo.Key()
	if _, ok := c.repos[key]; ok {
		return false
	}

	c.repos[key] = repo
	repo.MessageSent.Connect(c, func(msg object.Message) { c.route(repo, msg) })
	repo.Destroyed.Connect(c, func(struct{}) { c.RemoveRepo(repo) })
	c.requests.Delete(key)

	slog.Info("added repository", "id", key, "name", repo.Name())
	signal.Fire(&c.ReposChanged)
	return true
}

// RemoveRepo drops repo from the table. Destroyed repositories are removed
// automatically. Clears the default repository if it was repo.
func (c *Core) RemoveRepo(repo *object.Repository) bool {
	if repo == nil {
		return false
	}
	key := repo.Key()
	if c.repos[key] != repo {
		return false
	}

	delete(c.repos, key)
	repo.MessageSent.Disconnect(c)
	repo.Destroyed.Disconnect(c)
	if c.defaultRepo == repo {
		c.SetDefaultRepo(nil)
	}

	slog.Debug("removed repository", "id", key)
	signal.Fire(&c.ReposChanged)
	return true
}

// Repo returns the known repository with id.
func (c *Core) Repo(id uuid.UUID) (*object.Repository, bool) {
	repo, ok := c.repos[ident.Key(id)]
	return repo, ok
}

// Repos returns the known repositories ordered by id.
func (c *Core) Repos() []*object.Repository {
	out := make([]*object.Repository, 0, len(c.repos))
	for _, repo := range c.repos {
		out = append(out, repo)
	}
	slices.SortFunc(out, func(a, b *object.Repository) int {
		return strings.Compare(a.Key(), b.Key())
	})
	return out
}

// DefaultRepo returns the primary repository, or nil.
func (c *Core) DefaultRepo() *object.Repository { return c.defaultRepo }

// SetDefaultRepo marks repo as the primary repository.
func (c *Core) SetDefaultRepo(repo *object.Repository) {
	if c.defaultRepo == repo {
		return
	}
	slog.Debug("setting default repository", "id", repoKey(repo))
	c.defaultRepo = repo
	signal.Fire(&c.DefaultRepoChanged)
}

// RequestRepo asks listeners of RepoRequested to create a repository with
// id. Returns false if the repository is already known or an identical
// request is still pending.
func (c *Core) RequestRepo(id uuid.UUID, remote bool) bool {
	key := ident.Key(id)
	if _, ok := c.repos[key]; ok {
		return false
	}
	if err := c.requests.Add(key, remote, gocache.DefaultExpiration); err != nil {
		slog.Debug("repository request pending", "id", key)
		return false
	}
	c.RepoRequested.Emit(RepoRequest{ID: id, Remote: remote})
	return true
}

// route delivers a message from a local repository. Targets held in the
// table are delivered directly; the rest, and every broadcast, go to the
// transport.
func (c *Core) route(from *object.Repository, msg object.Message) {
	var remote []uuid.UUID
	for _, target := range msg.Targets {
		if repo, ok := c.repos[ident.Key(target)]; ok {
			repo.DeliverMessage(msg.Source, msg.Payload)
			continue
		}
		remote = append(remote, target)
	}

	if msg.Broadcast {
		for _, repo := range c.Repos() {
			if repo != from {
				repo.DeliverMessage(msg.Source, msg.Payload)
			}
		}
	}

	if len(remote) == 0 && !msg.Broadcast {
		return
	}
	out := msg
	out.Targets = remote
	if err := c.transport.Send(c.ctx, out); err != nil {
		slog.Warn("transport send failed", "source", msg.Source, "targets", len(remote), "error", err)
	}
}

// Deliver hands inbound traffic to its target repository, or to every
// repository when the target is uuid.Nil. Returns the number of
// repositories reached.
func (c *Core) Deliver(env Envelope) int {
	if env.Target == uuid.Nil {
		repos := c.Repos()
		for _, repo := range repos {
			repo.DeliverMessage(env.Source, env.Payload)
		}
		return len(repos)
	}
	repo, ok := c.repos[ident.Key(env.Target)]
	if !ok {
		slog.Debug("dropping message for unknown repository", "target", env.Target, "source", env.Source)
		return 0
	}
	repo.DeliverMessage(env.Source, env.Payload)
	return 1
}

// Pump delivers every envelope queued in the inbox and returns the count.
func (c *Core) Pump() int {
	n := 0
	for {
		env, ok := c.inbox.TryTake()
		if !ok {
			return n
		}
		c.Deliver(env)
		n++
	}
}

// Run delivers inbox traffic until ctx is done or the inbox is closed.
// Returns ctx.Err() on cancellation and nil after Close.
func (c *Core) Run(ctx context.Context) error {
	prev := c.ctx
	c.ctx = ctx
	defer func() { c.ctx = prev }()

	for {
		c.Pump()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-c.inbox.Wait():
			if !ok {
				c.Pump()
				return nil
			}
		}
	}
}

// Close stops the inbox so that Run returns once queued traffic is
// delivered. Safe to call from any goroutine.
func (c *Core) Close() {
	c.inbox.Close()
}

func repoKey(repo *object.Repository) string {
	if repo == nil {
		return ""
	}
	return repo.Key()
}
