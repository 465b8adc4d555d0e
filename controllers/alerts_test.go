package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modaapi/dbhelper"
	"modaapi/models"
	"modaapi/test"
)

func TestCreateAlertOk(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := setupTestServer(db)
	user := test.FakeUser(db)

	reqBody := CreateAlertIn{
		Description: "black leather jacket size M",
		Category:    test.StrPointer("outerwear"),
		MaxPrice:    decimalPtr(120),
	}

	req := test.NewJSONAuthRequest("POST", "/market/alerts", userPk(user), reqBody)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, "Expected status code 201 Created, got %d: %s", rec.Code, rec.Body.String())

	var saved models.SearchAlert
	result := db.Limit(1).Find(&saved, "user_account_id = ?", user.ID)
	require.Equal(t, int64(1), result.RowsAffected)
	assert.Equal(t, reqBody.Description, saved.Description)
	assert.Len(t, saved.Embedding, models.EmbeddingDimension)
	assert.Equal(t, models.DefaultAlertThreshold, saved.SimilarityThreshold)
	assert.True(t, saved.Active)
	require.NotNil(t, saved.Category)
	assert.Equal(t, models.CategoryOuterwear, *saved.Category)
}

func TestCreateAlertThresholdOverride(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := setupTestServer(db)
	user := test.FakeUser(db)

	threshold := 0.9
	reqBody := CreateAlertIn{
		Description:         "silk slip dress",
		SimilarityThreshold: &threshold,
	}

	req := test.NewJSONAuthRequest("POST", "/market/alerts", userPk(user), reqBody)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var saved models.SearchAlert
	db.Limit(1).Find(&saved, "user_account_id = ?", user.ID)
	assert.Equal(t, 0.9, saved.SimilarityThreshold)
}

func TestCreateAlertMissingDescription(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := setupTestServer(db)
	user := test.FakeUser(db)

	req := test.NewJSONAuthRequest("POST", "/market/alerts", userPk(user), CreateAlertIn{})
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAlerts(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := setupTestServer(db)
	user := test.FakeUser(db)
	other := test.FakeUser(db)

	db.Create(&models.SearchAlert{UserAccountID: user.ID, Description: "wool coat", SimilarityThreshold: models.DefaultAlertThreshold, Active: true})
	db.Create(&models.SearchAlert{UserAccountID: other.ID, Description: "not mine", SimilarityThreshold: models.DefaultAlertThreshold, Active: true})

	req := test.NewJSONAuthRequest("GET", "/market/alerts", userPk(user), "")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var response struct {
		Items []models.SearchAlert `json:"items"`
	}
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	require.Len(t, response.Items, 1)
	assert.Equal(t, "wool coat", response.Items[0].Description)
}

func TestDeleteAlert(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := setupTestServer(db)
	user := test.FakeUser(db)
	other := test.FakeUser(db)

	alert := models.SearchAlert{UserAccountID: user.ID, Description: "wool coat", SimilarityThreshold: models.DefaultAlertThreshold, Active: true}
	db.Create(&alert)

	// Someone else's alert cannot be deleted.
	foreign := test.NewJSONAuthRequest("DELETE", fmt.Sprintf("/market/alerts/%v", alert.ID), userPk(other), "")
	foreignRec := httptest.NewRecorder()
	e.ServeHTTP(foreignRec, foreign)
	assert.Equal(t, http.StatusNotFound, foreignRec.Code)

	req := test.NewJSONAuthRequest("DELETE", fmt.Sprintf("/market/alerts/%v", alert.ID), userPk(user), "")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	db.Model(models.SearchAlert{}).Where("id = ?", alert.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}
