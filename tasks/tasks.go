package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"modaapi/matching"
	"modaapi/models"
	"modaapi/services"
	"modaapi/textutil"
)

type GarmentEmbeddingPayload struct {
	GarmentID uint `json:"garment_id"`
}

type ProfileRecomputePayload struct {
	UserID uint `json:"user_id"`
}

func NewGarmentEmbeddingTask(garmentID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(GarmentEmbeddingPayload{GarmentID: garmentID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask("embedding:garment", payload), nil
}

func NewProfileRecomputeTask(userID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(ProfileRecomputePayload{UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask("profile:recompute", payload), nil
}

func NewStaleProfileSweepTask() *asynq.Task {
	return asynq.NewTask("profile:sweep", nil)
}

func NewAlertScanTask() *asynq.Task {
	return asynq.NewTask("alerts:scan", nil)
}

// garmentDescription flattens listing attributes into the text the
// embedding model sees when the garment has no photo.
func garmentDescription(g *models.Garment) string {
	var sb strings.Builder
	sb.WriteString(textutil.Canonical(g.Title))
	fmt.Fprintf(&sb, " %s %s", g.Category, g.Condition)
	if g.Brand != nil {
		sb.WriteString(" " + textutil.Canonical(*g.Brand))
	}
	for _, color := range g.Colors {
		sb.WriteString(" " + color)
	}
	for _, material := range g.Materials {
		sb.WriteString(" " + material)
	}
	if g.Story != nil {
		sb.WriteString(" " + textutil.Canonical(*g.Story))
	}
	return sb.String()
}

// HandleGarmentEmbeddingTask computes the garment vector from its photo
// when one was uploaded, falling back to its text attributes otherwise.
func HandleGarmentEmbeddingTask(ctx context.Context, t *asynq.Task, db *gorm.DB, awsService services.AWSServiceProvider, embedder services.EmbeddingProvider) error {
	var payload GarmentEmbeddingPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	fmt.Printf("[Garment: %v] Embedding processing\n", payload.GarmentID)

	var garment models.Garment
	res := db.First(&garment, payload.GarmentID)
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on retrieving garment for embedding %v", payload.GarmentID))
		return res.Error
	}

	var embedding []float64
	if garment.ImageKey != nil && *garment.ImageKey != "" {
		bucketName := os.Getenv("R2_BUCKET_NAME")
		fmt.Printf("[Garment: %v] Request presigned download url for %s\n", garment.ID, *garment.ImageKey)
		fileUrl, err := awsService.GetPresignedR2FileReadURL(ctx, bucketName, *garment.ImageKey)
		if err != nil {
			sentry.CaptureException(fmt.Errorf("[Garment: %v] Error on getting presigned URL for photo %s: %v", garment.ID, *garment.ImageKey, err))
			return err
		}
		imageBytes, err := services.ReadFileFromUrl(fileUrl)
		if err != nil {
			sentry.CaptureException(fmt.Errorf("[Garment: %v] Error on downloading photo %s: %v", garment.ID, *garment.ImageKey, err))
			return err
		}
		fmt.Printf("[Garment: %v] Downloaded photo size: %d bytes\n", garment.ID, len(imageBytes))
		embedding, err = embedder.EmbedImage(ctx, imageBytes)
		if err != nil {
			sentry.CaptureException(fmt.Errorf("[Garment: %v] Error on embedding photo: %v", garment.ID, err))
			return err
		}
	} else {
		var err error
		embedding, err = embedder.EmbedText(ctx, garmentDescription(&garment))
		if err != nil {
			sentry.CaptureException(fmt.Errorf("[Garment: %v] Error on embedding description: %v", garment.ID, err))
			return err
		}
	}

	garment.Embedding = embedding
	if err := db.Save(&garment).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Garment: %v] Error on saving embedding: %v", garment.ID, err))
		return err
	}
	fmt.Printf("[Garment: %v] Embedding finished successfully\n", garment.ID)
	return nil
}

// HandleProfileRecomputeTask rebuilds the user's style profile from
// their wardrobe and interaction history and clears the stale flag.
func HandleProfileRecomputeTask(ctx context.Context, t *asynq.Task, db *gorm.DB) error {
	var payload ProfileRecomputePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	fmt.Printf("[Profile: %v] Recompute processing\n", payload.UserID)

	var owned []models.Garment
	if err := db.Where("owner_id = ?", payload.UserID).Find(&owned).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Profile: %v] Error on retrieving wardrobe: %v", payload.UserID, err))
		return err
	}
	var interactions []models.InteractionEvent
	if err := db.Preload("Garment").Where("user_account_id = ?", payload.UserID).Find(&interactions).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Profile: %v] Error on retrieving interactions: %v", payload.UserID, err))
		return err
	}

	profile := services.BuildStyleProfile(payload.UserID, owned, interactions)

	var existing models.UserStyleProfile
	res := db.Limit(1).Find(&existing, "user_account_id = ?", payload.UserID)
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Profile: %v] Error on retrieving profile row: %v", payload.UserID, res.Error))
		return res.Error
	}
	if res.RowsAffected > 0 {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
	}
	profile.Stale = false
	if err := db.Save(profile).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Profile: %v] Error on saving profile: %v", payload.UserID, err))
		return err
	}
	fmt.Printf("[Profile: %v] Recompute finished successfully, dominant aesthetic: %s\n", payload.UserID, profile.DominantAesthetic)
	return nil
}

// HandleStaleProfileSweepTask re-enqueues a recompute for every profile
// still marked stale, catching users whose inline enqueue was lost.
func HandleStaleProfileSweepTask(ctx context.Context, t *asynq.Task, db *gorm.DB) error {
	var profiles []models.UserStyleProfile
	if err := db.Where("stale = ?", true).Find(&profiles).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Profile sweep] Error fetching stale profiles: %v", err))
		return err
	}
	if len(profiles) == 0 {
		fmt.Println("[Profile sweep] No stale profiles")
		return nil
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")})
	defer asynqClient.Close()

	for _, profile := range profiles {
		task, err := NewProfileRecomputeTask(profile.UserAccountID)
		if err != nil {
			sentry.CaptureException(err)
			continue
		}
		taskInfo, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("profiles"))
		if err != nil {
			fmt.Printf("[Profile sweep] Error on enqueuing recompute for user %d: %v\n", profile.UserAccountID, err)
			sentry.CaptureException(fmt.Errorf("[Profile sweep] Error on enqueuing recompute for user %d: %v", profile.UserAccountID, err))
			continue
		}
		fmt.Printf("[Profile sweep] Recompute enqueued for user %d: %s\n", profile.UserAccountID, taskInfo.ID)
	}
	return nil
}

// alertScanWindow bounds how far back the scan looks for fresh listings.
const alertScanWindow = 24 * time.Hour

// alertNotifyBackoff limits each alert to one notification per day.
const alertNotifyBackoff = 24 * time.Hour

// HandleAlertScanTask matches recently listed garments against every
// active search alert.
func HandleAlertScanTask(ctx context.Context, t *asynq.Task, db *gorm.DB) error {
	fmt.Println("[Alert scan] Processing")

	var alerts []models.SearchAlert
	if err := db.Where("active = ?", true).Find(&alerts).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Alert scan] Error fetching alerts: %v", err))
		return err
	}
	if len(alerts) == 0 {
		fmt.Println("[Alert scan] No active alerts")
		return nil
	}

	since := time.Now().Add(-alertScanWindow)
	var recent []models.Garment
	if err := db.Where("listing_state = ? and updated_at > ?", models.ListingListed, since).Find(&recent).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Alert scan] Error fetching recent listings: %v", err))
		return err
	}
	fmt.Printf("[Alert scan] %d alerts against %d recent listings\n", len(alerts), len(recent))

	now := time.Now()
	for i := range alerts {
		alert := &alerts[i]
		if alert.LastNotifiedAt != nil && now.Sub(*alert.LastNotifiedAt) < alertNotifyBackoff {
			continue
		}
		hits := 0
		for j := range recent {
			garment := &recent[j]
			if garment.OwnerID == alert.UserAccountID || len(garment.Embedding) == 0 {
				continue
			}
			if alert.Category != nil && garment.Category != *alert.Category {
				continue
			}
			if alert.MaxPrice.Valid {
				if !garment.Price.Valid || garment.Price.Decimal.GreaterThan(alert.MaxPrice.Decimal) {
					continue
				}
			}
			similarity, err := matching.CosineSimilarity(alert.Embedding, garment.Embedding)
			if err != nil {
				sentry.CaptureException(fmt.Errorf("[Alert: %v] Similarity error against garment %v: %v", alert.ID, garment.ID, err))
				continue
			}
			if similarity >= alert.SimilarityThreshold {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		alert.MatchesFound += hits
		alert.LastNotifiedAt = &now
		if err := db.Save(alert).Error; err != nil {
			sentry.CaptureException(fmt.Errorf("[Alert: %v] Error on saving scan result: %v", alert.ID, err))
			continue
		}
		fmt.Printf("[Alert: %v] %d new matches for user %v (%q)\n", alert.ID, hits, alert.UserAccountID, alert.Description)
	}
	return nil
}
