package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-mailbox/core"
)

func newPayloadRecord(req core.EnqueueRequest, now time.Time) *payloadRecord {
	scheduleFor := req.ScheduleFor.UTC()
	if req.ScheduleFor.IsZero() {
		scheduleFor = now
	}
	return &payloadRecord{
		MailboxName:    strings.TrimSpace(req.MailboxName),
		RegionName:     strings.TrimSpace(req.Destination.RegionName),
		RequestMethod:  strings.TrimSpace(req.Destination.Method),
		RequestPath:    req.Destination.Path,
		RequestHeaders: copyStringMap(req.Destination.Headers),
		RequestBody:    append([]byte(nil), req.Destination.Body...),
		ScheduleFor:    scheduleFor,
		Attempts:       0,
		CreatedAt:      now,
	}
}

func (r *payloadRecord) toDomain() core.Payload {
	return core.Payload{
		ID:          r.ID,
		MailboxName: r.MailboxName,
		Destination: core.Destination{
			RegionName: r.RegionName,
			Method:     r.RequestMethod,
			Path:       r.RequestPath,
			Headers:    copyStringMap(r.RequestHeaders),
			Body:       append([]byte(nil), r.RequestBody...),
		},
		ScheduleFor: r.ScheduleFor.UTC(),
		Attempts:    r.Attempts,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

func newRegionRecord(region core.Region, now time.Time) *regionRecord {
	return &regionRecord{
		Name:      strings.TrimSpace(region.Name),
		Address:   strings.TrimSpace(region.Address),
		Category:  strings.TrimSpace(region.Category),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *regionRecord) toDomain() core.Region {
	return core.Region{
		Name:     r.Name,
		Address:  r.Address,
		Category: r.Category,
	}
}

func copyStringMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
