package postgres

import (
	"context"
	"encoding/json"
	"time"

	kpool "github.com/expfab/expfab/pkg/conn/db/postgres/pool"
	"github.com/expfab/expfab/pkg/domain"
)

type eventPG struct { // implements db.EventInterface
	pool kpool.Pool
}

// args:
//   - pool: connection pool used to query/exec SQL
func New(pool kpool.Pool) *eventPG {
	return &eventPG{pool: pool}
}

// wire shape of one attribute in the "attributes" jsonb column.
//
// Kept as an ordered array, not an object, since the schema of an event
// type is ordered.
type jsonAttribute struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func (e *eventPG) Append(ctx context.Context, event domain.Event) error {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	attributes := make([]jsonAttribute, 0, len(event.Attributes))
	for _, a := range event.Attributes {
		attributes = append(attributes, jsonAttribute{Path: string(a.Path), Value: a.Value})
	}
	payload, err := json.Marshal(attributes)
	if err != nil {
		return err
	}

	var createdAt *time.Time
	if !event.CreatedAt.IsZero() {
		createdAt = &event.CreatedAt
	}

	_, err = conn.Exec(
		ctx,
		`
		insert into "event" (
			"event_type", "subject_id", "actor_id", "actor_name", "attributes", "created_at"
		)
		values ($1, $2, $3, $4, $5::jsonb, coalesce($6::timestamp with time zone, now()))
		`,
		string(event.Type), event.SubjectId,
		event.Actor.Id, event.Actor.Name, payload, createdAt,
	)
	return err
}

func (e *eventPG) FindBySubject(ctx context.Context, subjectId string) ([]domain.Event, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select "event_type", "subject_id", "actor_id", "actor_name", "attributes", "created_at"
		from "event"
		where "subject_id" = $1
		order by "id" ASC
		`,
		subjectId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var (
			found   domain.Event
			rawType string
			payload []byte
		)
		if err := rows.Scan(
			&rawType, &found.SubjectId,
			&found.Actor.Id, &found.Actor.Name, &payload, &found.CreatedAt,
		); err != nil {
			return nil, err
		}
		found.Type = domain.EventType(rawType)

		attributes := []jsonAttribute{}
		if err := json.Unmarshal(payload, &attributes); err != nil {
			return nil, err
		}
		for _, a := range attributes {
			found.Attributes = append(found.Attributes, domain.AttributeValue{
				Path: domain.Attribute(a.Path), Value: a.Value,
			})
		}

		events = append(events, found)
	}

	return events, nil
}
