package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"ecosort/internal/codec"
	"ecosort/internal/domain"
	"ecosort/internal/repo"
)

// WasteView is a waste item with display fields decoded. Fields that cannot
// be decoded are nil.
type WasteView struct {
	ID          string           `json:"id"`
	Class       *string          `json:"waste_class"`
	Prediction  *string          `json:"prediction"`
	Confidence  *float64         `json:"confidence"`
	RecycleProb *float64         `json:"recycle_prob"`
	Image       *string          `json:"image_base64,omitempty"`
	Timestamp   string           `json:"timestamp"`
	Points      int64            `json:"points"`
	Collected   bool             `json:"collected"`
	Deleted     bool             `json:"deleted"`
	DeletedAt   *string          `json:"deleted_at,omitempty"`
	DeletedBy   *string          `json:"deleted_by,omitempty"`
	RestoredAt  *string          `json:"restored_at,omitempty"`
	RestoredBy  *string          `json:"restored_by,omitempty"`
	State       domain.Lifecycle `json:"state"`
}

func (e Engine) decode(stored, field, id string) *string {
	v := codec.Field(e.Codec, stored)
	if v == nil && codec.IsEncrypted(stored) {
		e.logger().WithField("waste_id", id).WithField("field", field).Warn("display field could not be decrypted")
	}
	return v
}

func (e Engine) decodeNumber(stored, field, id string) *float64 {
	s := e.decode(stored, field, id)
	if s == nil {
		return nil
	}
	d := codec.Number(codec.Plain{}, *s)
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func (e Engine) view(w domain.WasteItem, withImage bool) WasteView {
	v := WasteView{
		ID:          w.ID,
		Class:       e.decode(w.Class, "waste_class", w.ID),
		Prediction:  e.decode(w.Prediction, "prediction", w.ID),
		Confidence:  e.decodeNumber(w.Confidence, "confidence", w.ID),
		RecycleProb: e.decodeNumber(w.RecycleProb, "recycle_prob", w.ID),
		Timestamp:   w.CreatedAt,
		Points:      w.Points,
		Collected:   w.Collected,
		Deleted:     w.Deleted,
		DeletedAt:   w.DeletedAt,
		DeletedBy:   w.DeletedBy,
		RestoredAt:  w.RestoredAt,
		RestoredBy:  w.RestoredBy,
		State:       w.Lifecycle(),
	}
	if withImage {
		v.Image = e.decode(w.Image, "image_base64", w.ID)
	}
	return v
}

// ListWaste returns waste items newest first, deleted ones included when
// asked.
func (e Engine) ListWaste(ctx context.Context, includeDeleted bool, limit int) ([]WasteView, error) {
	items, err := e.Repo.ListWaste(ctx, repo.WasteFilters{IncludeDeleted: includeDeleted, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]WasteView, 0, len(items))
	for _, w := range items {
		out = append(out, e.view(w, true))
	}
	return out, nil
}

func (e Engine) GetWaste(ctx context.Context, id string) (WasteView, error) {
	w, err := e.Repo.GetWasteItem(ctx, id)
	if err != nil {
		return WasteView{}, err
	}
	return e.view(w, true), nil
}

type WasteSummary struct {
	Recyclable    int `json:"totalRecyclable"`
	NonRecyclable int `json:"totalNonRecyclable"`
}

// Summarize counts non-deleted items by recyclability verdict.
func (e Engine) Summarize(ctx context.Context) (WasteSummary, error) {
	items, err := e.Repo.ListWaste(ctx, repo.WasteFilters{})
	if err != nil {
		return WasteSummary{}, err
	}
	var s WasteSummary
	for _, w := range items {
		p := e.decode(w.Prediction, "prediction", w.ID)
		if p == nil {
			continue
		}
		switch *p {
		case "Recyclable":
			s.Recyclable++
		case "Non-Recyclable":
			s.NonRecyclable++
		}
	}
	return s, nil
}

const (
	ClaimantNone         = "Nobody Claimed"
	ClaimantNotClaimable = "Not Claimable"
)

type WasteLogEntry struct {
	ID         string  `json:"id"`
	Timestamp  string  `json:"collectedAt"`
	Prediction *string `json:"prediction"`
	Class      *string `json:"waste_class"`
	Points     int64   `json:"pointsCollected"`
	Username   string  `json:"username"`
}

// WasteLog lists active items with the username of whoever collected them.
func (e Engine) WasteLog(ctx context.Context) ([]WasteLogEntry, error) {
	items, err := e.Repo.ListWaste(ctx, repo.WasteFilters{})
	if err != nil {
		return nil, err
	}
	claimants, err := e.Repo.ClaimantsByWaste(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(claimants))
	seen := map[string]bool{}
	for _, acct := range claimants {
		if !seen[acct] {
			seen[acct] = true
			ids = append(ids, acct)
		}
	}
	names, err := e.Repo.UsernamesByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]WasteLogEntry, 0, len(items))
	for _, w := range items {
		entry := WasteLogEntry{
			ID:         w.ID,
			Timestamp:  w.CreatedAt,
			Prediction: e.decode(w.Prediction, "prediction", w.ID),
			Class:      e.decode(w.Class, "waste_class", w.ID),
			Points:     w.Points,
			Username:   ClaimantNone,
		}
		if w.Points == 0 {
			entry.Username = ClaimantNotClaimable
		} else if name := names[claimants[w.ID]]; name != "" {
			entry.Username = name
		}
		out = append(out, entry)
	}
	return out, nil
}

type CollectionView struct {
	ID          string `json:"id"`
	WasteItemID string `json:"wasteId"`
	Class       string `json:"waste_class"`
	CollectedAt string `json:"collectedAt"`
	Points      int64  `json:"pointsCollected"`
}

// UserCollections returns an account's collection records newest first with
// the classification snapshot decoded.
func (e Engine) UserCollections(ctx context.Context, accountID string) ([]CollectionView, error) {
	recs, err := e.Repo.ListCollections(ctx, repo.HistoryFilters{AccountID: accountID})
	if err != nil {
		return nil, err
	}
	out := make([]CollectionView, 0, len(recs))
	for _, r := range recs {
		class := "Unknown"
		if v := e.decode(r.Class, "waste_class", r.WasteItemID); v != nil {
			class = *v
		}
		out = append(out, CollectionView{ID: r.ID, WasteItemID: r.WasteItemID, Class: class, CollectedAt: r.CollectedAt, Points: r.Points})
	}
	return out, nil
}

type WasteInput struct {
	ID          string
	Class       string
	Prediction  string
	Confidence  string
	RecycleProb string
	Image       string
	Points      int64
	CreatedAt   time.Time
}

// AddWaste records an item as ingestion would. Display fields are stored as
// given.
func (e Engine) AddWaste(ctx context.Context, in WasteInput) (domain.WasteItem, error) {
	if in.Points < 0 {
		return domain.WasteItem{}, domain.Invalid("points must not be negative")
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	created := in.CreatedAt
	if created.IsZero() {
		created = e.now()
	}
	w := domain.WasteItem{
		ID:          id,
		Class:       in.Class,
		Prediction:  in.Prediction,
		Confidence:  in.Confidence,
		RecycleProb: in.RecycleProb,
		Image:       in.Image,
		Points:      in.Points,
		CreatedAt:   created.In(e.location()).Format(domain.CreatedLayout),
	}
	if err := e.Repo.InsertWasteItem(ctx, w); err != nil {
		return domain.WasteItem{}, err
	}
	return w, nil
}
