package workers

import (
	"context"
	"time"

	"tournament-registration-system/models"
	"tournament-registration-system/services"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReconciliationWorker repairs rows left behind when a two-step mutation
// only half-landed before transactions were introduced, or when a manual
// DB edit breaks the pairing between requests and participants.
type ReconciliationWorker struct {
	db       *gorm.DB
	feed     *services.Changefeed
	interval time.Duration
}

func NewReconciliationWorker(db *gorm.DB, feed *services.Changefeed, interval time.Duration) *ReconciliationWorker {
	return &ReconciliationWorker{db: db, feed: feed, interval: interval}
}

func (w *ReconciliationWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting reconciliation worker (approved requests → participants)…")
	go w.run(ctx)
}

func (w *ReconciliationWorker) run(ctx context.Context) {
	w.sweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-ctx.Done():
			log.Println("⏹️ Reconciliation worker stopped")
			return
		}
	}
}

func (w *ReconciliationWorker) sweep() {
	if err := w.repairApprovedRequests(); err != nil {
		log.Printf("❌ [Reconciliation] request sweep failed: %v", err)
	}
	if err := w.repairApprovedPayments(); err != nil {
		log.Printf("❌ [Reconciliation] payment sweep failed: %v", err)
	}
}

// repairApprovedRequests inserts the missing participant row for any
// approved join request that has none.
func (w *ReconciliationWorker) repairApprovedRequests() error {
	var orphans []models.TournamentRequest
	err := w.db.Where(
		"status = ? AND NOT EXISTS (SELECT 1 FROM tournament_participants p WHERE p.tournament_id = tournament_requests.tournament_id AND p.user_id = tournament_requests.user_id)",
		models.RequestApproved,
	).Find(&orphans).Error
	if err != nil {
		return err
	}

	for _, req := range orphans {
		participant := models.TournamentParticipant{
			ID:            uuid.NewString(),
			TournamentID:  req.TournamentID,
			UserID:        req.UserID,
			PaymentStatus: models.PaymentPending,
		}
		if err := w.db.Create(&participant).Error; err != nil {
			log.Printf("❌ [Reconciliation] failed to restore participant for request %s: %v", req.ID, err)
			continue
		}
		log.Printf("✅ [Reconciliation] restored participant for user %s in tournament %s", req.UserID, req.TournamentID)
		w.feed.Publish(services.ChangeEvent{
			Table:        services.TableParticipants,
			Action:       services.ActionInsert,
			TournamentID: req.TournamentID,
			RowID:        participant.ID,
		})
	}
	return nil
}

// repairApprovedPayments completes the participant payment status for any
// approved payment request whose participant is still pending.
func (w *ReconciliationWorker) repairApprovedPayments() error {
	var stale []models.PaymentRequest
	err := w.db.Where(
		"status = ? AND EXISTS (SELECT 1 FROM tournament_participants p WHERE p.tournament_id = payment_requests.tournament_id AND p.user_id = payment_requests.user_id AND p.payment_status = ?)",
		models.RequestApproved, models.PaymentPending,
	).Find(&stale).Error
	if err != nil {
		return err
	}

	for _, payment := range stale {
		res := w.db.Model(&models.TournamentParticipant{}).
			Where("tournament_id = ? AND user_id = ?", payment.TournamentID, payment.UserID).
			Update("payment_status", models.PaymentCompleted)
		if res.Error != nil {
			log.Printf("❌ [Reconciliation] failed to complete payment for user %s: %v", payment.UserID, res.Error)
			continue
		}
		log.Printf("✅ [Reconciliation] completed payment status for user %s in tournament %s", payment.UserID, payment.TournamentID)
		w.feed.Publish(services.ChangeEvent{
			Table:        services.TableParticipants,
			Action:       services.ActionUpdate,
			TournamentID: payment.TournamentID,
		})
	}
	return nil
}
