package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vytor/stepple/internal/docstore"
	apperrors "github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/services"
	"github.com/vytor/stepple/internal/stepstore"
	"github.com/vytor/stepple/internal/testutil"
)

func TestStepsService(t *testing.T) {
	ctx := context.Background()
	store := stepstore.New(docstore.New(testutil.NewTestDB(t)))
	svc := services.NewStepsService(store)

	require.NoError(t, store.PutDeviceSteps(ctx, "u1", "2025-02-01", 812))

	rec, err := svc.GetDay(ctx, "u1", "2025-02-01")
	require.NoError(t, err)
	assert.Equal(t, int64(812), rec.Count)

	_, err = svc.GetDay(ctx, "u1", "2025-02-02")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	_, err = svc.GetDay(ctx, "u1", "02/01/2025")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))

	profile, err := svc.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", profile.LastUpdatedDate)

	_, err = svc.GetProfile(ctx, "nobody")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}
