package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"

	"github.com/finreview/compliancereviewflow/internal/models"
)

// stubGenerator returns a fixed reply (or error) on every call.
type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (g *stubGenerator) Generate(ctx context.Context, parts ...genai.Part) (string, error) {
	g.calls++
	return g.text, g.err
}

// sequencedGenerator replays a scripted list of outcomes in order.
type sequencedGenerator struct {
	outcomes []generation
	calls    int
}

type generation struct {
	text string
	err  error
}

func (g *sequencedGenerator) Generate(ctx context.Context, parts ...genai.Part) (string, error) {
	if g.calls >= len(g.outcomes) {
		return "", fmt.Errorf("unexpected generation call %d", g.calls)
	}
	out := g.outcomes[g.calls]
	g.calls++
	return out.text, out.err
}

// memoryStore merges SetFields writes per version, like Firestore MergeAll.
type memoryStore struct {
	fields map[string]map[string]any
	failOn string
}

func (s *memoryStore) SetFields(ctx context.Context, versionID string, fields map[string]any) error {
	if s.failOn != "" {
		if _, present := fields[s.failOn]; present {
			return fmt.Errorf("injected write failure on %s", s.failOn)
		}
	}
	if s.fields == nil {
		s.fields = map[string]map[string]any{}
	}
	doc := s.fields[versionID]
	if doc == nil {
		doc = map[string]any{}
		s.fields[versionID] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

type stubRegistry struct {
	version  *models.DocumentVersion
	findErr  error
	statuses []string
}

func (r *stubRegistry) Find(ctx context.Context, versionID string) (*models.DocumentVersion, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.version, nil
}

func (r *stubRegistry) SetStatus(ctx context.Context, versionID, status string) error {
	r.statuses = append(r.statuses, status)
	return nil
}

type stubArtifacts struct {
	saved map[string][]byte
}

func (a *stubArtifacts) Save(ctx context.Context, objectName string, content []byte) (string, error) {
	if a.saved == nil {
		a.saved = map[string][]byte{}
	}
	a.saved[objectName] = content
	return "gs://test-artifacts/" + objectName, nil
}

type stubDisclosures struct {
	refs []string
	err  error
}

func (d *stubDisclosures) Load(ctx context.Context) ([]string, error) {
	return d.refs, d.err
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) PipelineFinished(ctx context.Context, versionID, status string) {
	n.events = append(n.events, versionID+":"+status)
}
