package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/berair/internal/auth/password"
	"github.com/smallbiznis/berair/internal/clock"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
	"github.com/smallbiznis/berair/internal/user/repository"
	"github.com/smallbiznis/berair/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, time.April, 15, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (userdomain.Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := conn.AutoMigrate(&userdomain.User{}, &userdomain.Credential{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(testNow),
	}), conn
}

func validRequest(nik string) userdomain.CreateRequest {
	return userdomain.CreateRequest{
		NIK:      nik,
		Name:     "Siti Aminah",
		Region:   "Kampung Utara",
		Address:  "Jl. Mawar No. 3",
		Role:     userdomain.RoleUser,
		Password: "rahasia123",
	}
}

func TestCreateUserStoresHashedCredential(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, validRequest("3201010101010001"))
	require.NoError(t, err)
	assert.Equal(t, userdomain.RoleUser, resp.Role)
	assert.True(t, testNow.Equal(resp.CreatedAt))

	cred, err := repository.Provide().FindCredentialByNIK(ctx, conn, "3201010101010001")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.NotEqual(t, "rahasia123", cred.PasswordHash)
	assert.True(t, password.Verify("rahasia123", cred.PasswordHash))
}

func TestCreateUserRejectsDuplicateNIK(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validRequest("3201010101010002"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, validRequest("3201010101010002"))
	assert.ErrorIs(t, err, userdomain.ErrNIKExists)
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*userdomain.CreateRequest)
		want   error
	}{
		{name: "short nik", mutate: func(r *userdomain.CreateRequest) { r.NIK = "123" }, want: userdomain.ErrInvalidNIK},
		{name: "short name", mutate: func(r *userdomain.CreateRequest) { r.Name = "A" }, want: userdomain.ErrInvalidName},
		{name: "short region", mutate: func(r *userdomain.CreateRequest) { r.Region = "X" }, want: userdomain.ErrInvalidRegion},
		{name: "short address", mutate: func(r *userdomain.CreateRequest) { r.Address = "Jl." }, want: userdomain.ErrInvalidAddress},
		{name: "unknown role", mutate: func(r *userdomain.CreateRequest) { r.Role = "superuser" }, want: userdomain.ErrInvalidRole},
		{name: "short password", mutate: func(r *userdomain.CreateRequest) { r.Password = "123" }, want: userdomain.ErrInvalidPassword},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest("3201010101010003")
			tc.mutate(&req)
			_, err := svc.Create(ctx, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSearchIsCaseInsensitiveAndLimited(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		req := validRequest(fmt.Sprintf("32010101010100%02d", i+10))
		req.Name = fmt.Sprintf("Budi Santoso %d", i)
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	found, err := svc.Search(ctx, "budi")
	require.NoError(t, err)
	assert.Len(t, found, 10)

	found, err = svc.Search(ctx, "3201010101010015")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Budi Santoso 5", found[0].Name)

	_, err = svc.Search(ctx, "  ")
	assert.ErrorIs(t, err, userdomain.ErrInvalidQuery)
}

func TestListPaginatesWithCursor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, validRequest(fmt.Sprintf("32010101010200%02d", i)))
		require.NoError(t, err)
	}

	req := userdomain.ListRequest{}
	req.PageSize = 2
	first, err := svc.List(ctx, req)
	require.NoError(t, err)
	assert.Len(t, first.Users, 2)
	assert.True(t, first.PageInfo.HasMore)

	seen := map[string]bool{}
	for _, u := range first.Users {
		seen[u.ID] = true
	}

	req.PageToken = first.PageInfo.NextPageToken
	req.PageSize = 10
	rest, err := svc.List(ctx, req)
	require.NoError(t, err)
	assert.Len(t, rest.Users, 3)
	assert.False(t, rest.PageInfo.HasMore)
	for _, u := range rest.Users {
		assert.False(t, seen[u.ID], "user %s returned twice", u.ID)
	}
}

func TestGetByNIKNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetByNIK(context.Background(), "9999999999999999")
	assert.ErrorIs(t, err, userdomain.ErrNotFound)

	_, err = svc.GetByNIK(context.Background(), "123")
	assert.ErrorIs(t, err, userdomain.ErrInvalidNIK)
}
