package storage

import (
	"context"
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"
	mdp "github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/rs/zerolog/log"
)

// Archiver stores the raw payloads of a collection run so a disputed
// blacklist entry can be traced back to the exact bytes the portal served.
// Objects are grouped under archives/<source>/<runID>/.
type Archiver struct {
	storage StorageService
	bucket  string
}

// NewArchiver creates an archiver writing to the given bucket. A nil storage
// service disables archiving; every method becomes a logged no-op so runs
// keep working without GCS credentials.
func NewArchiver(storage StorageService, bucket string) *Archiver {
	return &Archiver{
		storage: storage,
		bucket:  bucket,
	}
}

// Enabled reports whether uploads will actually happen
func (a *Archiver) Enabled() bool {
	return a != nil && a.storage != nil && a.bucket != ""
}

// ArchivePayload stores the raw bytes of one fetched payload and returns the
// object name. Archiving failures are logged, not returned: losing an
// archive copy must never fail a run that already has the data in hand.
func (a *Archiver) ArchivePayload(ctx context.Context, source, runID, name string, payload []byte, contentType string) string {
	if !a.Enabled() {
		return ""
	}

	objectName := fmt.Sprintf("archives/%s/%s/%s", source, runID, name)
	uploaded, err := a.storage.Upload(ctx, a.bucket, objectName, payload, contentType)
	if err != nil {
		log.Warn().
			Err(err).
			Str("source", source).
			Str("runId", runID).
			Str("object", objectName).
			Msg("Failed to archive payload")
		return ""
	}

	log.Debug().
		Str("source", source).
		Str("object", uploaded).
		Int("bytes", len(payload)).
		Msg("Archived payload")

	return uploaded
}

// ArchiveHTMLSnapshot stores an HTML payload twice, once raw and once
// converted to markdown for quick reading in the console.
func (a *Archiver) ArchiveHTMLSnapshot(ctx context.Context, source, runID, name string, html []byte) string {
	if !a.Enabled() {
		return ""
	}

	raw := a.ArchivePayload(ctx, source, runID, name+".html", html, "text/html; charset=utf-8")

	converter := md.NewConverter("", true, nil)
	converter.Use(mdp.GitHubFlavored())

	markdown, err := converter.ConvertString(string(html))
	if err != nil {
		log.Warn().
			Err(err).
			Str("source", source).
			Str("runId", runID).
			Msg("Failed to convert snapshot to markdown")
		return raw
	}

	a.ArchivePayload(ctx, source, runID, name+".md", []byte(markdown), "text/markdown; charset=utf-8")
	return raw
}
