package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/adserve/internal/domain"
	"github.com/ignite/adserve/internal/service/suppression"
)

func testList() (*domain.SuppressionList, []domain.IdentifierRecord) {
	now := time.Now().UTC()
	list := &domain.SuppressionList{
		ID:             "list-1",
		AdvertiserID:   "adv_techcorp",
		Name:           "purchasers",
		IdentifierType: domain.IdentifierEmailHash,
		IsActive:       true,
		Size:           2,
		CreatedAt:      now,
		SubmittedAt:    now,
		LastUpdated:    now,
	}
	ids := []domain.IdentifierRecord{
		{IdentifierHash: "hash-a", Identifier: "a@example.com", IdentifierType: domain.IdentifierEmailHash, ListID: "list-1", AdvertiserID: "adv_techcorp", AddedAt: now},
		{IdentifierHash: "hash-b", Identifier: "b@example.com", IdentifierType: domain.IdentifierEmailHash, ListID: "list-1", AdvertiserID: "adv_techcorp", AddedAt: now},
	}
	return list, ids
}

func TestCreateList_CommitsMetadataAndIdentifiers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSuppressionStore(db)
	list, ids := testList()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO suppression_lists").
		WithArgs(list.ID, list.AdvertiserID, list.Name, list.Description, list.IdentifierType,
			list.IsActive, list.Size, list.CreatedAt, list.SubmittedAt, list.LastUpdated).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep := mock.ExpectPrepare("INSERT INTO suppression_identifiers")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.CreateList(context.Background(), list, ids))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateList_DuplicateListID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSuppressionStore(db)
	list, ids := testList()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO suppression_lists").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err = store.CreateList(context.Background(), list, ids)
	assert.ErrorIs(t, err, suppression.ErrDuplicateList)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateList_IdentifierFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSuppressionStore(db)
	list, ids := testList()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO suppression_lists").
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep := mock.ExpectPrepare("INSERT INTO suppression_identifiers")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = store.CreateList(context.Background(), list, ids)
	require.Error(t, err)
	// No commit expectation: the partial insert must never become visible.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetList_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, advertiser_id, name").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = NewSuppressionStore(db).GetList(context.Background(), "ghost")
	assert.ErrorIs(t, err, suppression.ErrNotFound)
}

func TestUpdateList_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE suppression_lists").
		WillReturnResult(sqlmock.NewResult(0, 0))

	name := "renamed"
	err = NewSuppressionStore(db).UpdateList(context.Background(), "ghost", domain.ListUpdate{Name: &name})
	assert.ErrorIs(t, err, suppression.ErrNotFound)
}

func TestDeleteList_ReportsExistence(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSuppressionStore(db)

	mock.ExpectExec("DELETE FROM suppression_lists").
		WithArgs("list-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	existed, err := store.DeleteList(context.Background(), "list-1")
	require.NoError(t, err)
	assert.True(t, existed)

	mock.ExpectExec("DELETE FROM suppression_lists").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	existed, err = store.DeleteList(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestFindAdvertisersForIdentifier_QueriesByHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	raw := "User@Example.com"
	hash := suppression.HashIdentifier(raw, domain.IdentifierEmailHash)

	mock.ExpectQuery("SELECT i.advertiser_id, l.name").
		WithArgs(hash, domain.IdentifierEmailHash).
		WillReturnRows(sqlmock.NewRows([]string{"advertiser_id", "name"}).
			AddRow("adv_techcorp", "purchasers").
			AddRow("adv_techcorp", "churned").
			AddRow("adv_other", "competitors"))

	lookup, err := NewSuppressionStore(db).FindAdvertisersForIdentifier(context.Background(), raw, domain.IdentifierEmailHash)
	require.NoError(t, err)

	assert.Equal(t, 3, lookup.MatchCount)
	assert.Equal(t, []string{"adv_techcorp", "adv_other"}, lookup.Advertisers)
	assert.Len(t, lookup.Details, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBannersForPlacement_ParsesTargetingParams(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, advertiser_id, campaign_id").
		WithArgs("home_top").
		WillReturnRows(sqlmock.NewRows([]string{"id", "advertiser_id", "campaign_id", "placement_id", "weight", "include_params", "exclude_params"}).
			AddRow("b1", "adv_techcorp", "c1", "home_top", 70, []byte(`{"geo":"US"}`), []byte(`{"advertiser":"adv_techcorp"}`)).
			AddRow("b2", "adv_other", "c2", "home_top", 30, []byte(`{}`), nil))

	banners, err := NewBannerStore(db).BannersForPlacement(context.Background(), "home_top")
	require.NoError(t, err)
	require.Len(t, banners, 2)

	assert.Equal(t, "US", banners[0].IncludeParams["geo"])
	assert.Equal(t, "adv_techcorp", banners[0].ExcludeParams["advertiser"])
	assert.Equal(t, 30, banners[1].Weight)
	assert.Nil(t, banners[1].ExcludeParams)
}
