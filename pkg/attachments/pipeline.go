// Package attachments turns selected files into an instant local preview and
// an eventual server-confirmed attachment message.
package attachments

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/chatfront/pkg/api"
	"github.com/go-go-golems/chatfront/pkg/composer"
	"github.com/go-go-golems/chatfront/pkg/events"
	"github.com/go-go-golems/chatfront/pkg/failure"
)

// DefaultConcurrency bounds parallel uploads.
const DefaultConcurrency = 4

// Uploader stores files on the server.
type Uploader interface {
	Upload(ctx context.Context, files ...api.UploadFile) ([]api.UploadedFile, error)
}

// Submitter is the composer surface the pipeline needs.
type Submitter interface {
	Preview(t composer.Turn, release func()) (int, error)
	Settle(correlationID string) bool
	SubmitTurn(ctx context.Context, t composer.Turn) (*composer.Result, error)
}

type Config struct {
	Uploader    Uploader
	Submitter   Submitter
	Blobs       *BlobStore
	Sink        events.Sink
	Alerter     failure.Alerter
	SessionID   func() string
	Concurrency int
}

// Pipeline processes each file independently; files are not an atomic batch.
type Pipeline struct {
	uploader    Uploader
	submitter   Submitter
	blobs       *BlobStore
	sink        events.Sink
	alerter     failure.Alerter
	sessionID   func() string
	concurrency int
}

// Result is the outcome for one file. Preview and Canonical share CorrelationID.
type Result struct {
	Name          string
	CorrelationID string
	Preview       *api.Attachment
	PreviewIndex  int
	Canonical     *api.Attachment
	Submit        *composer.Result
	Err           error
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Uploader == nil || cfg.Submitter == nil {
		return nil, errors.New("attachments: uploader and submitter are required")
	}
	if cfg.Blobs == nil {
		cfg.Blobs = NewBlobStore()
	}
	if cfg.Alerter == nil {
		cfg.Alerter = failure.NopAlerter
	}
	if cfg.SessionID == nil {
		cfg.SessionID = func() string { return "" }
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Pipeline{
		uploader:    cfg.Uploader,
		submitter:   cfg.Submitter,
		blobs:       cfg.Blobs,
		sink:        cfg.Sink,
		alerter:     cfg.Alerter,
		sessionID:   cfg.SessionID,
		concurrency: cfg.Concurrency,
	}, nil
}

func (p *Pipeline) Blobs() *BlobStore { return p.blobs }

// Attach shows a preview for every file right away, then uploads them
// concurrently. Each confirmed upload is submitted as its own turn. The
// returned results are in input order; completion order is unspecified.
// The error is the first per-file failure, if any.
func (p *Pipeline) Attach(ctx context.Context, files []File) ([]Result, error) {
	results := make([]Result, len(files))
	blobURLs := make([]string, len(files))

	for i, f := range files {
		corr := uuid.NewString()
		blobURL := p.blobs.Register(f)
		blobURLs[i] = blobURL
		preview := api.NewLocalAttachment(f.Name, blobURL, f.MimeType, corr)
		idx, err := p.submitter.Preview(composer.AttachmentTurn(preview), func() { p.blobs.Release(blobURL) })
		results[i] = Result{Name: f.Name, CorrelationID: corr, Preview: preview, PreviewIndex: idx, Err: err}
		if err != nil {
			p.blobs.Release(blobURLs[i])
			continue
		}
		events.Emit(p.sink, events.Event{
			Type: events.TypeAttachmentPreview, SessionID: p.sessionID(), CorrelationID: corr, Message: f.Name,
		})
	}

	g := errgroup.Group{}
	g.SetLimit(p.concurrency)
	for i := range files {
		if results[i].Err != nil {
			continue
		}
		i := i
		g.Go(func() error {
			p.confirm(ctx, files[i], blobURLs[i], &results[i])
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Err != nil {
			return results, r.Err
		}
	}
	return results, nil
}

func (p *Pipeline) confirm(ctx context.Context, f File, blobURL string, r *Result) {
	uploaded, err := p.uploader.Upload(ctx, f.upload())
	if err == nil && len(uploaded) != 1 {
		err = errors.Errorf("expected 1 uploaded file, got %d", len(uploaded))
	}
	if err != nil {
		// The preview stays pinned as the final record for this file and keeps
		// its blob until the session changes.
		log.Error().Err(err).Str("file", f.Name).Str("correlation_id", r.CorrelationID).Msg("upload failed")
		r.Err = failure.Upload("upload "+f.Name, err)
		failure.Report(p.alerter, r.Err)
		return
	}

	canonical := api.NewCanonicalAttachment(uploaded[0], r.CorrelationID)
	r.Canonical = canonical
	if !p.submitter.Settle(r.CorrelationID) {
		p.blobs.Release(blobURL)
	}
	events.Emit(p.sink, events.Event{
		Type: events.TypeAttachmentFinal, SessionID: p.sessionID(), CorrelationID: r.CorrelationID, Message: canonical.Name,
	})
	log.Info().Str("file", canonical.Name).Str("url", canonical.URL).Str("mimetype", canonical.MimeType).Msg("upload confirmed")

	res, err := p.submitter.SubmitTurn(ctx, composer.AttachmentTurn(canonical))
	r.Submit = res
	if err != nil {
		r.Err = err
	}
}

// Close releases every blob still held, including those of failed previews.
func (p *Pipeline) Close() {
	if n := p.blobs.ReleaseAll(); n > 0 {
		log.Debug().Int("blobs", n).Msg("released preview blobs")
	}
}
