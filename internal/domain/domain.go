package domain

import "time"

// TimeLayout is the storage format for ledger and audit timestamps. It is
// fixed-width UTC so string comparison orders chronologically.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// CreatedLayout is the format ingestion uses for WasteItem.CreatedAt
// (server-local wall clock).
const CreatedLayout = "2006-01-02 15:04:05"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

type Account struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username"`
	RoleID    string `json:"role"`
	Points    int64  `json:"points"`
	Verified  bool   `json:"verified"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"role_name"`
	Description string   `json:"description,omitempty"`
	Pages       []string `json:"accessible_pages"`
}

// WasteItem is one scanned unit. Display fields (Class, Prediction,
// Confidence, RecycleProb, Image) are stored as produced by ingestion and
// may be encrypted.
type WasteItem struct {
	ID          string  `json:"id"`
	Class       string  `json:"waste_class"`
	Prediction  string  `json:"prediction"`
	Confidence  string  `json:"confidence"`
	RecycleProb string  `json:"recycle_prob"`
	Image       string  `json:"image_base64,omitempty"`
	Points      int64   `json:"points"`
	Collected   bool    `json:"collected"`
	Deleted     bool    `json:"deleted"`
	CreatedAt   string  `json:"timestamp"`
	DeletedAt   *string `json:"deleted_at,omitempty"`
	DeletedBy   *string `json:"deleted_by,omitempty"`
	RestoredAt  *string `json:"restored_at,omitempty"`
	RestoredBy  *string `json:"restored_by,omitempty"`
}

type Award struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Cost      int64  `json:"cost"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

// CollectionRecord is appended once per successful collect.
type CollectionRecord struct {
	ID          string `json:"id"`
	AccountID   string `json:"user_id"`
	WasteItemID string `json:"waste_id"`
	Class       string `json:"waste_class"`
	Points      int64  `json:"points_collected"`
	CollectedAt string `json:"collected_at" format:"date-time"`
}

const RedemptionActive = "active"

// RedemptionRecord is appended once per successful redeem.
type RedemptionRecord struct {
	ID         string  `json:"id"`
	AccountID  string  `json:"user_id"`
	AwardID    string  `json:"award_id"`
	AwardName  string  `json:"award_name"`
	Cost       int64   `json:"cost"`
	Token      *string `json:"barcode_id,omitempty"`
	Status     string  `json:"status_barcode"`
	RedeemedAt string  `json:"redeemed_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
