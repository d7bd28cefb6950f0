package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/CloudNativeWorks/vpm-bootstrap/internal/api"
	"github.com/CloudNativeWorks/vpm-bootstrap/internal/staging"
	"github.com/CloudNativeWorks/vpm-bootstrap/pkg/helper"
	"github.com/CloudNativeWorks/vpm-bootstrap/pkg/logger"
	"github.com/google/uuid"
)

// State is a step of a bootstrap run.
type State int

const (
	StateStart State = iota
	StateFetchConfig
	StateDecodeConfig
	StateExtractURL
	StateDownloadArtifact
	StateStageArtifact
	StateAwaitUserAck
	StateCleanup
	StateAborted
)

var stateNames = map[State]string{
	StateStart:            "start",
	StateFetchConfig:      "fetch-config",
	StateDecodeConfig:     "decode-config",
	StateExtractURL:       "extract-url",
	StateDownloadArtifact: "download-artifact",
	StateStageArtifact:    "stage-artifact",
	StateAwaitUserAck:     "await-user-ack",
	StateCleanup:          "cleanup",
	StateAborted:          "aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Fetcher is the HTTP capability the pipeline needs.
type Fetcher interface {
	GetJSON(ctx context.Context, url string) ([]byte, error)
	Get(ctx context.Context, url string) ([]byte, error)
}

// Stager turns downloaded bytes into an owned file on disk.
type Stager interface {
	Stage(data []byte) (*staging.Artifact, error)
}

// Acknowledger blocks until the operator is done with the staged file.
type Acknowledger interface {
	Await(ctx context.Context) error
}

// Options holds the per-run settings.
type Options struct {
	Endpoint string
	// CopyTo, when set, receives a persistent copy before the ack step.
	CopyTo string
}

// Pipeline runs one fetch, download, stage and cleanup cycle.
type Pipeline struct {
	opts    Options
	fetcher Fetcher
	stager  Stager
	ack     Acknowledger
	out     io.Writer
	log     *logger.Logger
	state   State
}

// New builds a Pipeline. out receives the operator-facing messages.
func New(opts Options, fetcher Fetcher, stager Stager, ack Acknowledger, out io.Writer, log *logger.Logger) *Pipeline {
	return &Pipeline{
		opts:    opts,
		fetcher: fetcher,
		stager:  stager,
		ack:     ack,
		out:     out,
		log:     log.Module("pipeline").With(logger.Fields{"run_id": uuid.New().String()}),
		state:   StateStart,
	}
}

// State is the step the pipeline reached last.
func (p *Pipeline) State() State { return p.state }

// Run executes the pipeline. Any failure aborts the run; a staged artifact is
// removed on every exit path, panics included.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	defer p.abortOnError(&err)
	defer helper.RecoverPanic(p.log, "pipeline", &err)

	p.enter(StateFetchConfig)
	body, err := p.fetcher.GetJSON(ctx, p.opts.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to fetch config: %w", err)
	}

	p.enter(StateDecodeConfig)
	cfg, err := api.DecodeBootstrapConfig(body)
	if err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	p.enter(StateExtractURL)
	packageURL, err := api.ExtractBootstrapURL(cfg)
	if err != nil {
		return err
	}

	p.enter(StateDownloadArtifact)
	data, err := p.fetcher.Get(ctx, packageURL.String())
	if err != nil {
		return fmt.Errorf("failed to download bootstrap package: %w", err)
	}

	p.enter(StateStageArtifact)
	artifact, err := p.stager.Stage(data)
	if err != nil {
		return err
	}
	defer p.release(artifact)

	if p.opts.CopyTo != "" {
		if err := artifact.CopyTo(p.opts.CopyTo); err != nil {
			return fmt.Errorf("failed to copy staged package to %s: %w", p.opts.CopyTo, err)
		}
	}

	fmt.Fprintf(p.out, "Please import %s to your editor.\n", artifact.Path())
	fmt.Fprintln(p.out, "Press enter to quit.")

	p.enter(StateAwaitUserAck)
	if err := p.ack.Await(ctx); err != nil {
		return fmt.Errorf("interrupted while waiting for acknowledgement: %w", err)
	}

	p.enter(StateCleanup)
	return nil
}

func (p *Pipeline) enter(s State) {
	p.state = s
	p.log.WithField("step", s.String()).Debug("Entering step")
}

func (p *Pipeline) abortOnError(errp *error) {
	if *errp == nil {
		return
	}
	p.log.WithField("step", p.state.String()).WithError(*errp).Error("Bootstrap aborted")
	p.state = StateAborted
}

// release never changes the run's outcome; the artifact logs its own failure.
func (p *Pipeline) release(artifact *staging.Artifact) {
	_ = artifact.Release()
}
