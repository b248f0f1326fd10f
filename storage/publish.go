package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"

	"github.com/c360studio/heritrace/graph"
	"github.com/c360studio/heritrace/vocabulary"
)

// SubjectEntityChanged is the NATS subject change events are published on.
const SubjectEntityChanged = "heritrace.entity.changed"

// changeSource is recorded as the message and triple source.
const changeSource = "heritrace.curation"

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "heritrace",
		Category:    "change",
		Version:     "v1",
		Description: "Triples added to and removed from one curated entity",
		Factory:     func() any { return &ChangePayload{} },
	})
	if err != nil {
		panic("failed to register ChangePayload: " + err.Error())
	}
}

// ChangeType is the message type of change events.
var ChangeType = message.Type{Domain: "heritrace", Category: "change", Version: "v1"}

// ChangePayload describes the edit of one entity.
type ChangePayload struct {
	Entity    string           `json:"entity"`
	Added     []message.Triple `json:"added,omitempty"`
	Removed   []message.Triple `json:"removed,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (p *ChangePayload) Schema() message.Type { return ChangeType }

func (p *ChangePayload) Validate() error {
	if p.Entity == "" {
		return errors.New("entity is required")
	}
	if len(p.Added) == 0 && len(p.Removed) == 0 {
		return errors.New("change has no triples")
	}
	return nil
}

func (p *ChangePayload) MarshalJSON() ([]byte, error) {
	type Alias ChangePayload
	return json.Marshal((*Alias)(p))
}

func (p *ChangePayload) UnmarshalJSON(data []byte) error {
	type Alias ChangePayload
	return json.Unmarshal(data, (*Alias)(p))
}

// Publisher sends raw messages. *natsclient.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// PublishingStore wraps an EntityStore and publishes one change event per
// edited entity after every successful Apply. Publishing failures are
// logged; the write has already happened.
type PublishingStore struct {
	EntityStore

	pub     Publisher
	subject string
	logger  *slog.Logger
	now     func() time.Time
}

// NewPublishingStore wraps store. An empty subject means SubjectEntityChanged.
func NewPublishingStore(store EntityStore, pub Publisher, subject string, logger *slog.Logger) *PublishingStore {
	if subject == "" {
		subject = SubjectEntityChanged
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PublishingStore{
		EntityStore: store,
		pub:         pub,
		subject:     subject,
		logger:      logger,
		now:         time.Now,
	}
}

// Apply implements EntityStore.
func (s *PublishingStore) Apply(ctx context.Context, cs Changeset) error {
	if err := s.EntityStore.Apply(ctx, cs); err != nil {
		return err
	}
	if s.pub == nil {
		return nil
	}
	for _, payload := range ChangePayloads(cs, s.now()) {
		if err := s.publish(ctx, payload); err != nil {
			s.logger.Warn("Failed to publish change event",
				slog.String("entity", payload.Entity),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *PublishingStore) publish(ctx context.Context, payload *ChangePayload) error {
	msg := message.NewBaseMessage(ChangeType, payload, changeSource)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := s.pub.Publish(ctx, s.subject, data); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// ChangePayloads splits a changeset into one payload per subject, in first
// seen order.
func ChangePayloads(cs Changeset, now time.Time) []*ChangePayload {
	var out []*ChangePayload
	index := make(map[string]*ChangePayload)
	get := func(subject graph.Term) *ChangePayload {
		key := subject.String()
		p, ok := index[key]
		if !ok {
			p = &ChangePayload{Entity: key, UpdatedAt: now}
			index[key] = p
			out = append(out, p)
		}
		return p
	}
	for _, t := range cs.Remove {
		p := get(t.Subject)
		p.Removed = append(p.Removed, messageTriple(t, now))
	}
	for _, t := range cs.Add {
		p := get(t.Subject)
		p.Added = append(p.Added, messageTriple(t, now))
	}
	return out
}

// messageTriple converts an RDF triple to the graph ingestion form. Literal
// datatypes are carried as prefixed names.
func messageTriple(t graph.Triple, now time.Time) message.Triple {
	mt := message.Triple{
		Subject:    t.Subject.String(),
		Predicate:  string(t.Predicate),
		Object:     t.Object.String(),
		Source:     changeSource,
		Timestamp:  now,
		Confidence: 1.0,
	}
	if lit, ok := t.Object.(graph.Literal); ok {
		switch {
		case lit.Lang != "":
			mt.Datatype = "@" + lit.Lang
		case lit.Datatype != "":
			mt.Datatype = vocabulary.Compact(string(lit.Datatype))
		}
	}
	return mt
}
