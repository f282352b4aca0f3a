package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dd0wney/cluso-tara/pkg/model"
)

// Save upserts a recalculated snapshot. The revision column counts
// saves: 1 on first insert, incremented on every replacement.
func (s *PGStore) Save(ctx context.Context, project *model.Project) (stored *StoredProject, err error) {
	defer func(start time.Time) { record(s.reg, "save", start, err) }(time.Now())

	if project == nil {
		return nil, model.ErrNilProject
	}
	if project.ID == "" {
		return nil, model.NewError("store.save").Project("").Cause(model.ErrEmptyID).Err()
	}

	document, err := json.Marshal(project)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project: %w", err)
	}
	fingerprint := Fingerprint(document)
	now := time.Now().UTC()

	query := `
		INSERT INTO projects (id, title, revision, fingerprint, document, created_at, saved_at)
		VALUES ($1, $2, 1, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			revision = projects.revision + 1,
			fingerprint = EXCLUDED.fingerprint,
			document = EXCLUDED.document,
			saved_at = EXCLUDED.saved_at
		RETURNING revision
	`

	var revision int64
	if err := s.pool.QueryRow(ctx, query,
		project.ID,
		project.Title,
		fingerprint,
		document,
		now,
	).Scan(&revision); err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}

	s.updateGauge(ctx)

	return &StoredProject{
		Project:     project.Clone(),
		Revision:    revision,
		Fingerprint: fingerprint,
		SavedAt:     now,
	}, nil
}

// Get retrieves the stored snapshot for the given project id
func (s *PGStore) Get(ctx context.Context, id string) (stored *StoredProject, err error) {
	defer func(start time.Time) { record(s.reg, "get", start, err) }(time.Now())

	query := `
		SELECT revision, fingerprint, document, saved_at
		FROM projects
		WHERE id = $1
	`

	doc := &StoredProject{}
	var document []byte

	err = s.pool.QueryRow(ctx, query, id).Scan(
		&doc.Revision,
		&doc.Fingerprint,
		&document,
		&doc.SavedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NotFoundError("store.get", model.EntityProject, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	doc.Project = &model.Project{}
	if err := json.Unmarshal(document, doc.Project); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project: %w", err)
	}

	return doc, nil
}

// Delete removes a project
func (s *PGStore) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { record(s.reg, "delete", start, err) }(time.Now())

	result, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.NotFoundError("store.delete", model.EntityProject, id)
	}

	s.updateGauge(ctx)

	return nil
}

// List returns summaries of all stored projects, most recently saved
// first. The collection counts are read out of the JSON documents so
// listing never deserializes whole projects.
func (s *PGStore) List(ctx context.Context) (summaries []*ProjectSummary, err error) {
	defer func(start time.Time) { record(s.reg, "list", start, err) }(time.Now())

	query := `
		SELECT id, title, revision,
			CASE WHEN jsonb_typeof(document->'threats') = 'array'
				THEN jsonb_array_length(document->'threats') ELSE 0 END,
			CASE WHEN jsonb_typeof(document->'threat_scenarios') = 'array'
				THEN jsonb_array_length(document->'threat_scenarios') ELSE 0 END,
			saved_at
		FROM projects
		ORDER BY saved_at DESC, id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		summary := &ProjectSummary{}
		if err := rows.Scan(
			&summary.ID,
			&summary.Title,
			&summary.Revision,
			&summary.Threats,
			&summary.Scenarios,
			&summary.SavedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return summaries, nil
}

// updateGauge refreshes the stored-projects gauge
func (s *PGStore) updateGauge(ctx context.Context) {
	if s.reg == nil {
		return
	}
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count); err == nil {
		s.reg.StoreProjectsTotal.Set(float64(count))
	}
}
