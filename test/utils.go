package test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"

	"modaapi/models"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {

	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		log.Fatalf("Error when signing user token for %s. Error %s ", userPk, err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, userPk string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func StrPointer(s string) *string {
	return &s
}

func Contains(items []string, lookFor string) bool {

	for i := 0; i < len(items); i++ {

		if items[i] == lookFor {
			return true
		}
	}
	return false
}

func FakeUser(db *gorm.DB) *models.UserAccount {
	user := &models.UserAccount{
		Name:      "OurName",
		Email:     fmt.Sprintf("user%d@example.com", time.Now().UnixNano()),
		GoogleID:  fmt.Sprintf("google%d", time.Now().UnixNano()),
		LastIp:    "123.122.122.122",
		AvatarURL: "pictureurl",
	}
	db.Create(&user)
	return user
}

// FakeGarment creates a listed sell+trade garment priced at 40 AUD.
func FakeGarment(db *gorm.DB, ownerID uint, title string, category models.Category) *models.Garment {
	garment := &models.Garment{
		Title:        title,
		OwnerID:      ownerID,
		Category:     category,
		SizeLabel:    "M",
		SizingSystem: models.SizingUS,
		Condition:    models.ConditionGood,
		Colors:       []string{"black"},
		Materials:    []string{"cotton"},
		ListingState: models.ListingListed,
		ExchangeMode: models.ExchangeEither,
		Price:        decimal.NullDecimal{Decimal: decimal.NewFromInt(40), Valid: true},
		Currency:     "AUD",
		Source:       models.SourceSecondhand,
	}
	db.Create(&garment)
	return garment
}

type GoogleServiceMock struct{}

func (gsm GoogleServiceMock) ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {

	return &idtoken.Payload{Issuer: "Issue", Audience: "AAA", Expires: 119919191919, IssuedAt: 12312321321, Subject: "fake@example.com", Claims: map[string]interface{}{
		"email":   "fake@example.com",
		"picture": "pictureurl",
		"name":    "Fake User",
		"sub":     "123googleid",
	}}, nil

}

type AWSProviderMock struct {
	MockUrl string
}

func (awsService AWSProviderMock) InitPresignClient(ctx context.Context) error {
	return nil
}

func (awsService AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {

	return fmt.Sprintf("https://fakebucketurl.com/%s", fileName), nil
}

func (awsService AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	if awsService.MockUrl != "" {
		return awsService.MockUrl, nil
	}
	return fmt.Sprintf("https://fakebucketurl.com/%s", fileKey), nil
}

func (awsService AWSProviderMock) UploadToPresignedURL(ctx context.Context, bucketName, url string, fileContent []byte) (string, int, error) {
	return url, 204, nil
}

type URLCacheMock struct{}

func (ucm URLCacheMock) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	return fmt.Sprintf("https://fakecachedurl.com/%s", objectKey), nil
}

// EmbeddingMock returns a deterministic unit-ish vector so similarity
// ordering in tests is stable.
type EmbeddingMock struct{}

func (em EmbeddingMock) fixedVector(seed float64) []float64 {
	vector := make([]float64, models.EmbeddingDimension)
	for i := range vector {
		vector[i] = seed
	}
	return vector
}

func (em EmbeddingMock) EmbedImage(ctx context.Context, imageBytes []byte) ([]float64, error) {
	return em.fixedVector(0.5), nil
}

func (em EmbeddingMock) EmbedText(ctx context.Context, text string) ([]float64, error) {
	return em.fixedVector(0.25), nil
}

func (em EmbeddingMock) Dimension() int {
	return models.EmbeddingDimension
}

type StoryMock struct{}

func (sm StoryMock) GenerateStory(ctx context.Context, garment *models.Garment) (string, error) {
	return fmt.Sprintf("A well loved %s looking for its next chapter.", garment.Title), nil
}
