// Package auth_repo provides PostgreSQL storage for users. Users are
// tenant-scoped like every other row in the shared schema.
package auth_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/id"
	"tesoreria/internal/core/tenant"
	"tesoreria/internal/domain/auth"
	"tesoreria/internal/infrastructure/storage/postgres"
)

const usersTable = "users"

// UserRepo implements auth.UserRepository.
type UserRepo struct{}

// NewUserRepo creates a new user repository.
func NewUserRepo() *UserRepo {
	return &UserRepo{}
}

var _ auth.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *UserRepo) querier(ctx context.Context) postgres.Querier {
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

var userCols = postgres.ExtractDBColumns[auth.User]()

// Create inserts a new user, stamping the tenant from context.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return apperror.NewValidation("tenant is required")
	}

	data := postgres.StructToMap(user)
	data["tenant_id"] = tenantID

	q := r.builder().Insert(usersTable).SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (r *UserRepo) baseSelect(ctx context.Context) (squirrel.SelectBuilder, error) {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return squirrel.SelectBuilder{}, apperror.NewValidation("tenant is required")
	}
	return r.builder().
		Select(userCols...).
		From(usersTable).
		Where(squirrel.Eq{"tenant_id": tenantID}), nil
}

func (r *UserRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*auth.User, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var user auth.User
	if err := pgxscan.Get(ctx, r.querier(ctx), &user, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(usersTable, key)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	q, err := r.baseSelect(ctx)
	if err != nil {
		return nil, err
	}
	return r.getOne(ctx, q.Where(squirrel.Eq{"id": userID}), userID.String())
}

// GetByEmail retrieves a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	q, err := r.baseSelect(ctx)
	if err != nil {
		return nil, err
	}
	return r.getOne(ctx, q.Where(squirrel.Eq{"email": email}), email)
}

// Exists reports whether a user with this email already exists in the
// tenant.
func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return false, apperror.NewValidation("tenant is required")
	}

	q := r.builder().
		Select("COUNT(*)").
		From(usersTable).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		Where(squirrel.Eq{"email": email})

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build count: %w", err)
	}

	var count int64
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}

	return count > 0, nil
}

// Update modifies a user with optimistic locking.
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return apperror.NewValidation("tenant is required")
	}

	data := postgres.StructToMap(user)

	filteredData := make(map[string]any, len(data))
	for col, val := range data {
		switch col {
		case "id", "tenant_id", "created_at", "version", "updated_at":
			continue
		}
		filteredData[col] = val
	}

	q := r.builder().
		Update(usersTable).
		SetMap(filteredData).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": user.ID}).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		Where(squirrel.Eq{"version": user.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(usersTable, user.ID)
	}

	return nil
}
