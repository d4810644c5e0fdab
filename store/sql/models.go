package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type payloadRecord struct {
	bun.BaseModel `bun:"table:mailbox_payloads,alias:mp"`

	ID             int64             `bun:"id,pk,autoincrement"`
	MailboxName    string            `bun:"mailbox_name,notnull"`
	RegionName     string            `bun:"region_name,notnull"`
	RequestMethod  string            `bun:"request_method,notnull"`
	RequestPath    string            `bun:"request_path,notnull"`
	RequestHeaders map[string]string `bun:"request_headers,type:jsonb,notnull"`
	RequestBody    []byte            `bun:"request_body"`
	ScheduleFor    time.Time         `bun:"schedule_for,notnull"`
	Attempts       int               `bun:"attempts,notnull"`
	CreatedAt      time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type mailboxHeadRow struct {
	MailboxName string `bun:"mailbox_name"`
	HeadID      int64  `bun:"head_id"`
}

type regionRecord struct {
	bun.BaseModel `bun:"table:mailbox_regions,alias:mr"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Address   string    `bun:"address,notnull"`
	Category  string    `bun:"category,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
