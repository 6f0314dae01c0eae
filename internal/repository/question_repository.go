package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thptprep/engprep-backend/internal/model"
)

// QuestionRepository handles question bank data access. Question groups
// are stored one row per group with the subquestions as JSONB, mirroring
// how the generator emits them.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Create inserts a new question group and assigns its id.
func (r *QuestionRepository) Create(ctx context.Context, g *model.QuestionGroup) error {
	subs, err := json.Marshal(g.Subquestions)
	if err != nil {
		return err
	}
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO question_groups (id, group_type, context, subquestions)
		 VALUES ($1, $2, $3, $4)`,
		g.ID, g.Type, g.Context, subs,
	)
	return err
}

// ListByType returns every group of the given type in random order.
// minSubquestions filters out groups too small for their slot; pass 0
// to accept any size.
func (r *QuestionRepository) ListByType(ctx context.Context, t model.GroupType, minSubquestions int) ([]model.QuestionGroup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, group_type, context, subquestions
		 FROM question_groups
		 WHERE group_type = $1 AND jsonb_array_length(subquestions) >= $2
		 ORDER BY random()`, t, minSubquestions,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGroups(rows)
}

// SampleByType returns up to n random groups of the given type.
func (r *QuestionRepository) SampleByType(ctx context.Context, t model.GroupType, minSubquestions, n int) ([]model.QuestionGroup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, group_type, context, subquestions
		 FROM question_groups
		 WHERE group_type = $1 AND jsonb_array_length(subquestions) >= $2
		 ORDER BY random()
		 LIMIT $3`, t, minSubquestions, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGroups(rows)
}

// CountByType reports how many groups of each type exist.
func (r *QuestionRepository) CountByType(ctx context.Context) (map[model.GroupType]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT group_type, COUNT(*) FROM question_groups GROUP BY group_type`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.GroupType]int)
	for rows.Next() {
		var t model.GroupType
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

func scanGroups(rows pgx.Rows) ([]model.QuestionGroup, error) {
	var groups []model.QuestionGroup
	for rows.Next() {
		var g model.QuestionGroup
		var subs []byte
		if err := rows.Scan(&g.ID, &g.Type, &g.Context, &subs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(subs, &g.Subquestions); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
