package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Job is one (jid, system id) record. The full record lives in Document;
// the other columns exist for keys, ordering and filtering in SQL.
type Job struct {
	bun.BaseModel `bun:"table:sysmgmt.jobs,alias:j"`

	JID      string `bun:"jid,pk"`
	SystemID string `bun:"system_id,pk"`
	State    string `bun:",notnull"`

	Document json.RawMessage `bun:"type:jsonb,notnull"`

	CreatedAt time.Time `bun:",notnull"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
