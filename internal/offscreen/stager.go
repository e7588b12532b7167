package offscreen

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"carbonsink/internal/logger"
)

const (
	dirPrefix    = "carbon-report-stage-"
	hiddenMarker = ".hidden"
	pageFile     = "index.html"
	assetsDir    = "assets"
)

// Default wait bounds
const (
	DefaultImageTimeout = 3 * time.Second
	DefaultLayoutSettle = 500 * time.Millisecond
	DefaultRevealSettle = 300 * time.Millisecond
)

// frameDelay is the single tick a freshly mounted layout gets before images are checked
const frameDelay = 16 * time.Millisecond

// Options bound the readiness waits of a container
type Options struct {
	ImageTimeout time.Duration
	LayoutSettle time.Duration
	RevealSettle time.Duration
}

// DefaultOptions returns the standard wait bounds
func DefaultOptions() Options {
	return Options{
		ImageTimeout: DefaultImageTimeout,
		LayoutSettle: DefaultLayoutSettle,
		RevealSettle: DefaultRevealSettle,
	}
}

// Stager creates staging containers under a work directory and tracks the live ones
type Stager struct {
	workDir string
	opts    Options
	log     *logger.Logger

	mu     sync.Mutex
	active map[string]*Container
}

// NewStager creates a stager rooted at workDir (the system temp dir when empty)
func NewStager(workDir string, opts Options) *Stager {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Stager{
		workDir: workDir,
		opts:    opts,
		log:     logger.Component("offscreen"),
		active:  make(map[string]*Container),
	}
}

// Create makes a new hidden, empty container
func (s *Stager) Create() (*Container, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.workDir, dirPrefix+id)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, hiddenMarker), nil, 0644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to mark staging directory hidden: %w", err)
	}

	c := &Container{
		id:     id,
		dir:    dir,
		opts:   s.opts,
		stager: s,
		log:    s.log.With(logger.Fields{"container": id}),
	}

	s.mu.Lock()
	s.active[id] = c
	s.mu.Unlock()

	c.log.Debug("Staging container created", logger.Fields{"dir": dir})
	return c, nil
}

// Active lists the directories of containers not yet removed
func (s *Stager) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirs := make([]string, 0, len(s.active))
	for _, c := range s.active {
		dirs = append(dirs, c.dir)
	}
	sort.Strings(dirs)
	return dirs
}

func (s *Stager) release(id string) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}
