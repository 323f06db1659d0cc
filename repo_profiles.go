package account

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileSearchFilter narrows a public profile search. Empty fields are
// ignored; SearchWord matches display name or skill tags.
type ProfileSearchFilter struct {
	SearchWord string
	Location   string
	SkillTag   string
	Page       int
	PerPage    int
}

type Profiles interface {
	repository.Repository[*UserProfile]

	GetByUserID(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
	GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*UserProfile, error)
	Search(ctx context.Context, filter ProfileSearchFilter) ([]*UserProfile, error)
}

type profiles struct {
	repository.Repository[*UserProfile]
	db *bun.DB
}

var _ Profiles = (*profiles)(nil)

func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*UserProfile](db, repository.ModelHandlers[*UserProfile]{
		NewRecord: func() *UserProfile { return &UserProfile{} },
		GetID: func(p *UserProfile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.UserID
		},
		SetID: func(p *UserProfile, id uuid.UUID) {
			if p != nil {
				p.UserID = id
			}
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (a *profiles) GetByUserID(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	return a.GetByUserIDTx(ctx, a.db, userID)
}

func (a *profiles) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*UserProfile, error) {
	record := &UserProfile{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

// Search returns public, alive profiles newest first. Substring matching is
// case-insensitive on every backend by lowering both sides.
func (a *profiles) Search(ctx context.Context, filter ProfileSearchFilter) ([]*UserProfile, error) {
	var records []*UserProfile

	q := a.db.NewSelect().
		Model(&records).
		Relation("User").
		Where("?TableAlias.is_public = ?", true)

	if word := strings.TrimSpace(filter.SearchWord); word != "" {
		pattern := "%" + strings.ToLower(word) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("lower(?TableAlias.display_name) LIKE ?", pattern).
				WhereOr("lower(?TableAlias.skill_tags) LIKE ?", pattern)
		})
	}

	if location := strings.TrimSpace(filter.Location); location != "" {
		q = q.Where("lower(?TableAlias.location) LIKE ?", "%"+strings.ToLower(location)+"%")
	}

	if tag := strings.TrimSpace(filter.SkillTag); tag != "" {
		q = q.Where("lower(?TableAlias.skill_tags) LIKE ?", "%"+strings.ToLower(tag)+"%")
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	err := q.
		OrderExpr("?TableAlias.created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}
