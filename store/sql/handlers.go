package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func regionHandlers() repository.ModelHandlers[*regionRecord] {
	return repository.ModelHandlers[*regionRecord]{
		NewRecord: func() *regionRecord {
			return &regionRecord{}
		},
		GetID: func(record *regionRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *regionRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "name"
		},
		GetIdentifierValue: func(record *regionRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.Name)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
