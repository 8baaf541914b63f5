package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/berair/internal/auth/password"
	"github.com/smallbiznis/berair/internal/clock"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
	"github.com/smallbiznis/berair/pkg/db"
	"github.com/smallbiznis/berair/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const searchLimit = 10

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  userdomain.Repository
	Clock clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     userdomain.Repository
	genID    *snowflake.Node
	clock    clock.Clock
	validate *validator.Validate
}

func New(p Params) userdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("user.service"),
		repo:     p.Repo,
		genID:    p.GenID,
		clock:    p.Clock,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) Create(ctx context.Context, req userdomain.CreateRequest) (*userdomain.Response, error) {
	req.NIK = strings.TrimSpace(req.NIK)
	req.Name = strings.TrimSpace(req.Name)
	req.Region = strings.TrimSpace(req.Region)
	req.Address = strings.TrimSpace(req.Address)
	req.Role = userdomain.Role(strings.ToLower(strings.TrimSpace(string(req.Role))))
	if req.Role == "" {
		req.Role = userdomain.RoleUser
	}

	if err := s.validate.Struct(req); err != nil {
		return nil, mapValidationError(err)
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) {
			return nil, userdomain.ErrInvalidPassword
		}
		return nil, err
	}

	now := s.clock.Now()
	user := &userdomain.User{
		ID:        s.genID.Generate(),
		NIK:       req.NIK,
		Name:      req.Name,
		Region:    req.Region,
		Address:   req.Address,
		Role:      req.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByNIK(ctx, tx, user.NIK)
		if err != nil {
			return err
		}
		if existing != nil {
			return userdomain.ErrNIKExists
		}

		if err := s.repo.Insert(ctx, tx, user); err != nil {
			return err
		}
		return s.repo.InsertCredential(ctx, tx, &userdomain.Credential{
			ID:           s.genID.Generate(),
			UserID:       user.ID,
			NIK:          user.NIK,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, userdomain.ErrNIKExists
		}
		return nil, err
	}

	s.log.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	return userdomain.ToResponse(user), nil
}

func (s *Service) Get(ctx context.Context, id string) (*userdomain.Response, error) {
	userID, err := userdomain.ParseID(strings.TrimSpace(id))
	if err != nil || userID == 0 {
		return nil, userdomain.ErrInvalidID
	}

	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrNotFound
	}
	return userdomain.ToResponse(user), nil
}

func (s *Service) GetByNIK(ctx context.Context, nik string) (*userdomain.Response, error) {
	nik = strings.TrimSpace(nik)
	if len(nik) != 16 {
		return nil, userdomain.ErrInvalidNIK
	}

	user, err := s.repo.FindByNIK(ctx, s.db, nik)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrNotFound
	}
	return userdomain.ToResponse(user), nil
}

func (s *Service) List(ctx context.Context, req userdomain.ListRequest) (*userdomain.ListResponse, error) {
	filter := userdomain.ListFilter{
		Region: strings.TrimSpace(req.Region),
		Limit:  req.Limit() + 1,
	}
	if role := strings.TrimSpace(req.Role); role != "" {
		filter.Role = userdomain.Role(strings.ToLower(role))
		if !filter.Role.Valid() {
			return nil, userdomain.ErrInvalidRole
		}
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		afterID, err := userdomain.ParseID(cursor.ID)
		if err != nil {
			return nil, pagination.ErrInvalidPageToken
		}
		filter.AfterID = afterID
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	rows := make([]*userdomain.User, 0, len(items))
	for i := range items {
		rows = append(rows, &items[i])
	}
	page, info, err := pagination.BuildCursorPageInfo(rows, req.Limit(), func(u *userdomain.User) pagination.Cursor {
		return pagination.Cursor{ID: u.ID.String()}
	})
	if err != nil {
		return nil, err
	}

	resp := &userdomain.ListResponse{
		Users:    make([]userdomain.Response, 0, len(page)),
		PageInfo: info,
	}
	for _, u := range page {
		resp.Users = append(resp.Users, *userdomain.ToResponse(u))
	}
	return resp, nil
}

// Search matches name or NIK case-insensitively and returns at most ten users.
func (s *Service) Search(ctx context.Context, query string) ([]userdomain.Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, userdomain.ErrInvalidQuery
	}

	items, err := s.repo.Search(ctx, s.db, query, searchLimit)
	if err != nil {
		return nil, err
	}

	resp := make([]userdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *userdomain.ToResponse(&items[i]))
	}
	return resp, nil
}

func mapValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].StructField() {
	case "NIK":
		return userdomain.ErrInvalidNIK
	case "Name":
		return userdomain.ErrInvalidName
	case "Region":
		return userdomain.ErrInvalidRegion
	case "Address":
		return userdomain.ErrInvalidAddress
	case "Role":
		return userdomain.ErrInvalidRole
	case "Password":
		return userdomain.ErrInvalidPassword
	default:
		return err
	}
}
