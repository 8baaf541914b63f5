package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
	"gorm.io/gorm"
)

const userColumns = `id, nik, name, region, address, role, created_at, updated_at`

type repo struct{}

func Provide() userdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, u *userdomain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, nik, name, region, address, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.NIK,
		u.Name,
		u.Region,
		u.Address,
		u.Role,
		u.CreatedAt,
		u.UpdatedAt,
	).Error
}

func (r *repo) InsertCredential(ctx context.Context, db *gorm.DB, c *userdomain.Credential) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credentials (id, user_id, nik, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.UserID,
		c.NIK,
		c.PasswordHash,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*userdomain.User, error) {
	var user userdomain.User
	err := db.WithContext(ctx).Raw(
		`SELECT `+userColumns+` FROM users WHERE id = ?`,
		id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindByNIK(ctx context.Context, db *gorm.DB, nik string) (*userdomain.User, error) {
	var user userdomain.User
	err := db.WithContext(ctx).Raw(
		`SELECT `+userColumns+` FROM users WHERE nik = ?`,
		nik,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindCredentialByNIK(ctx context.Context, db *gorm.DB, nik string) (*userdomain.Credential, error) {
	var cred userdomain.Credential
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, nik, password_hash, created_at, updated_at
		 FROM credentials WHERE nik = ?`,
		nik,
	).Scan(&cred).Error
	if err != nil {
		return nil, err
	}
	if cred.ID == 0 {
		return nil, nil
	}
	return &cred, nil
}

// List pages through users newest first using the snowflake id as cursor.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter userdomain.ListFilter) ([]userdomain.User, error) {
	stmt := db.WithContext(ctx).Model(&userdomain.User{})
	if filter.Role != "" {
		stmt = stmt.Where("role = ?", filter.Role)
	}
	if region := strings.TrimSpace(filter.Region); region != "" {
		stmt = stmt.Where("LOWER(region) LIKE ?", "%"+strings.ToLower(region)+"%")
	}
	if filter.AfterID != 0 {
		stmt = stmt.Where("id < ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var users []userdomain.User
	if err := stmt.Order("id DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) ListByRole(ctx context.Context, db *gorm.DB, role userdomain.Role) ([]userdomain.User, error) {
	var users []userdomain.User
	err := db.WithContext(ctx).Raw(
		`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY name ASC, id ASC`,
		role,
	).Scan(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) Search(ctx context.Context, db *gorm.DB, query string, limit int) ([]userdomain.User, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	var users []userdomain.User
	err := db.WithContext(ctx).Raw(
		`SELECT `+userColumns+` FROM users
		 WHERE LOWER(name) LIKE ? OR LOWER(nik) LIKE ?
		 ORDER BY name ASC
		 LIMIT ?`,
		pattern,
		pattern,
		limit,
	).Scan(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) CountByRole(ctx context.Context, db *gorm.DB, role userdomain.Role) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM users WHERE role = ?`,
		role,
	).Scan(&count).Error
	return count, err
}
