package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/teamplane/teamplane/internal/apperrors"
)

// UpsertPlan creates or updates a plan keyed by its code.
func (s *Store) UpsertPlan(ctx context.Context, p *Plan) error {
	if p == nil {
		return fmt.Errorf("plan is nil")
	}
	if p.Code == "" {
		return fmt.Errorf("plan code is empty")
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO plans (code, name, stripe_product_id, stripe_price_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			stripe_product_id = excluded.stripe_product_id,
			stripe_price_id = excluded.stripe_price_id`,
		p.Code, p.Name, p.StripeProductID, p.StripePriceID, now.Unix(),
	)
	if err != nil {
		return apperrors.Internal("upsert_plan", "plan", err)
	}
	if p.ID == 0 {
		if id, err := res.LastInsertId(); err == nil && id != 0 {
			p.ID = id
		} else {
			existing, err := s.GetPlanByCode(ctx, p.Code)
			if err != nil {
				return err
			}
			p.ID = existing.ID
		}
	}
	return nil
}

// GetPlanByCode returns the plan with the given code.
func (s *Store) GetPlanByCode(ctx context.Context, code string) (*Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, code, name, stripe_product_id, stripe_price_id, created_at
		FROM plans WHERE code = ?`, code)

	var p Plan
	var createdAt int64
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.StripeProductID, &p.StripePriceID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("get_plan_by_code", "plan")
		}
		return nil, apperrors.Internal("get_plan_by_code", "plan", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

// GetPlanByStripeProductID returns the plan mapped to a Stripe product.
func (s *Store) GetPlanByStripeProductID(ctx context.Context, productID string) (*Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, code, name, stripe_product_id, stripe_price_id, created_at
		FROM plans WHERE stripe_product_id = ? LIMIT 1`, productID)

	var p Plan
	var createdAt int64
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.StripeProductID, &p.StripePriceID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("get_plan_by_product", "plan")
		}
		return nil, apperrors.Internal("get_plan_by_product", "plan", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

// UpsertFeature creates or updates a feature keyed by its code.
func (s *Store) UpsertFeature(ctx context.Context, f *Feature) error {
	if f == nil {
		return fmt.Errorf("feature is nil")
	}
	if f.Code == "" {
		return fmt.Errorf("feature code is empty")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO features (code, name, description)
		VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			description = excluded.description`,
		f.Code, f.Name, f.Description,
	)
	if err != nil {
		return apperrors.Internal("upsert_feature", "feature", err)
	}
	if f.ID == 0 {
		if id, err := res.LastInsertId(); err == nil && id != 0 {
			f.ID = id
		} else {
			row := s.db.QueryRowContext(ctx, `SELECT id FROM features WHERE code = ?`, f.Code)
			if err := row.Scan(&f.ID); err != nil {
				return apperrors.Internal("upsert_feature", "feature", err)
			}
		}
	}
	return nil
}

// SetPlanFeature attaches a feature to a plan with an inclusion flag and
// optional monthly limit. (plan, feature) pairs are unique; a second call
// overwrites the first.
func (s *Store) SetPlanFeature(ctx context.Context, pf *PlanFeature) error {
	if pf == nil {
		return fmt.Errorf("plan feature is nil")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plan_features (plan_id, feature_id, included, limit_monthly)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(plan_id, feature_id) DO UPDATE SET
			included = excluded.included,
			limit_monthly = excluded.limit_monthly`,
		pf.PlanID, pf.FeatureID, boolToInt(pf.Included), nullableInt64(pf.LimitMonthly),
	)
	if err != nil {
		return apperrors.Internal("set_plan_feature", "plan_feature", err)
	}
	return nil
}

// FeatureLimit resolves whether a plan includes a feature and its monthly
// limit, if any.
func (s *Store) FeatureLimit(ctx context.Context, planCode, featureCode string) (*Entitlement, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT p.code, f.code, pf.included, pf.limit_monthly
		FROM plan_features pf
		JOIN plans p ON p.id = pf.plan_id
		JOIN features f ON f.id = pf.feature_id
		WHERE p.code = ? AND f.code = ?`, planCode, featureCode)

	var e Entitlement
	var included int
	var limitMonthly sql.NullInt64
	err := row.Scan(&e.PlanCode, &e.FeatureCode, &included, &limitMonthly)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("feature_limit", "plan_feature")
		}
		return nil, apperrors.Internal("feature_limit", "plan_feature", err)
	}
	e.Included = included != 0
	if limitMonthly.Valid {
		v := limitMonthly.Int64
		e.LimitMonthly = &v
	}
	return &e, nil
}

// ListEntitlements returns every feature attached to a plan.
func (s *Store) ListEntitlements(ctx context.Context, planCode string) ([]Entitlement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.code, f.code, pf.included, pf.limit_monthly
		FROM plan_features pf
		JOIN plans p ON p.id = pf.plan_id
		JOIN features f ON f.id = pf.feature_id
		WHERE p.code = ?
		ORDER BY f.code ASC`, planCode)
	if err != nil {
		return nil, apperrors.Internal("list_entitlements", "plan_feature", err)
	}
	defer rows.Close()

	var out []Entitlement
	for rows.Next() {
		var e Entitlement
		var included int
		var limitMonthly sql.NullInt64
		if err := rows.Scan(&e.PlanCode, &e.FeatureCode, &included, &limitMonthly); err != nil {
			return nil, apperrors.Internal("list_entitlements", "plan_feature", fmt.Errorf("scan entitlement: %w", err))
		}
		e.Included = included != 0
		if limitMonthly.Valid {
			v := limitMonthly.Int64
			e.LimitMonthly = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
