// Package card resolves stored agent cards into the public AgentCard shape.
package card

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cohesivestack/valgo"

	"agent-host/internal/a2a"
	"agent-host/internal/storage"
)

var (
	ErrCardNotFound = errors.New("agent card not found")
	ErrCorruptCard  = errors.New("stored agent card is corrupt")
)

// Lookup fetches a raw card record.
type Lookup interface {
	FindAgentCard(ctx context.Context, f storage.CardFilter) (*storage.CardRecord, error)
}

// Query names a card by any combination of row id, human readable id and agent id.
type Query struct {
	ID              *int64
	HumanReadableID string
	AgentID         *int64
}

// Resolver turns stored card records into validated AgentCards.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a resolver reading from lookup.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the card matching every set field of q.
// An empty query returns ErrCardNotFound without touching storage.
func (r *Resolver) Resolve(ctx context.Context, q Query) (*a2a.AgentCard, error) {
	f := storage.CardFilter{ID: q.ID, AgentID: q.AgentID}
	if q.HumanReadableID != "" {
		hrid := q.HumanReadableID
		f.HumanReadableID = &hrid
	}
	if f.Empty() {
		return nil, ErrCardNotFound
	}

	rec, err := r.lookup.FindAgentCard(ctx, f)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, err
	}

	card, err := decode(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: card %d: %v", ErrCorruptCard, rec.ID, err)
	}
	if err := validate(card); err != nil {
		return nil, fmt.Errorf("%w: card %d: %v", ErrCorruptCard, rec.ID, err)
	}
	return card, nil
}

func decode(rec *storage.CardRecord) (*a2a.AgentCard, error) {
	card := &a2a.AgentCard{
		Name:             rec.Name,
		Description:      rec.Description,
		URL:              rec.URL,
		Version:          rec.Version,
		DocumentationURL: rec.DocumentationURL,
		HumanReadableID:  rec.HumanReadableID,
		AgentID:          rec.AgentID,
	}

	fields := []struct {
		name string
		raw  any
		dst  any
	}{
		{"provider", rec.Provider, &card.Provider},
		{"capabilities", rec.Capabilities, &card.Capabilities},
		{"authSchemes", rec.AuthSchemes, &card.AuthSchemes},
		{"skills", rec.Skills, &card.Skills},
		{"tags", rec.Tags, &card.Tags},
		{"defaultInputModes", rec.DefaultInputModes, &card.DefaultInputModes},
		{"defaultOutputModes", rec.DefaultOutputModes, &card.DefaultOutputModes},
	}
	for _, f := range fields {
		if err := decodeField(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	if card.Skills == nil {
		card.Skills = []a2a.Skill{}
	}

	var err error
	if card.CreatedAt, err = timestamp(rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("createdAt: %w", err)
	}
	if card.UpdatedAt, err = timestamp(rec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("updatedAt: %w", err)
	}
	return card, nil
}

// decodeField accepts a JSON document as string or bytes, or a value
// that was already decoded by the driver.
func decodeField(raw, dst any) error {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return err
		}
	}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dst)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// timestamp normalizes a stored time to RFC 3339 in UTC.
func timestamp(raw any) (string, error) {
	var s string
	switch v := raw.(type) {
	case nil:
		return "", nil
	case time.Time:
		return v.UTC().Format(time.RFC3339), nil
	case int64:
		return time.Unix(v, 0).UTC().Format(time.RFC3339), nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return "", fmt.Errorf("unsupported timestamp type %T", raw)
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("unrecognized timestamp %q", s)
}

func validate(card *a2a.AgentCard) error {
	val := valgo.Is(valgo.String(card.Name, "name").Not().Blank()).
		Is(valgo.String(card.URL, "url").Not().Blank()).
		Is(valgo.String(card.Version, "version").Not().Blank()).
		Is(valgo.Number(card.AgentID, "agentId").GreaterThan(0))

	if card.Provider != nil {
		val.Is(valgo.String(card.Provider.Organization, "provider.organization").Not().Blank())
	}
	for i, s := range card.Skills {
		val.InRow("skills", i, valgo.Is(valgo.String(s.ID, "id").Not().Blank()).
			Is(valgo.String(s.Name, "name").Not().Blank()))
	}

	if !val.Valid() {
		return val.Error()
	}
	return nil
}
