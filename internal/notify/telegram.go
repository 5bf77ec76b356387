package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sokleng/ics-backend/pkg/database"
	"gorm.io/gorm"
)

type alert struct {
	product      database.Product
	currentStock int
}

// Telegram delivers low-stock alerts to every user with a Telegram chat ID,
// via the Bot API. Alerts go through a buffered queue drained by a worker
// goroutine: enqueueing never blocks the dispatch that triggered it, and
// delivery failures are logged, never surfaced.
type Telegram struct {
	db      *gorm.DB
	log     *logrus.Logger
	token   string
	apiBase string
	client  *http.Client
	queue   chan alert
	done    chan struct{}
}

func NewTelegram(db *gorm.DB, log *logrus.Logger) *Telegram {
	t := &Telegram{
		db:      db,
		log:     log,
		token:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		apiBase: "https://api.telegram.org",
		client:  &http.Client{Timeout: 10 * time.Second},
		queue:   make(chan alert, 64),
		done:    make(chan struct{}),
	}
	go t.run()
	return t
}

// LowStock enqueues an alert. If the queue is full the alert is dropped.
func (t *Telegram) LowStock(product database.Product, currentStock int) {
	select {
	case t.queue <- alert{product: product, currentStock: currentStock}:
	default:
		t.log.WithField("product", product.Name).Warn("alert queue full, dropping low stock alert")
	}
}

// Close stops the worker after the queue drains.
func (t *Telegram) Close() {
	close(t.queue)
	<-t.done
}

func (t *Telegram) run() {
	defer close(t.done)
	for a := range t.queue {
		t.deliver(a)
	}
}

func (t *Telegram) deliver(a alert) {
	msg := fmt.Sprintf("LOW STOCK ALERT: %s is down to %d %s. Min level: %d",
		a.product.Name, a.currentStock, a.product.Unit, a.product.MinStockLevel)

	if t.token == "" {
		t.log.WithField("message", msg).Info("telegram token not configured, alert logged only")
		return
	}

	var recipients []database.User
	if err := t.db.Where("telegram_chat_id <> ''").Find(&recipients).Error; err != nil {
		t.log.WithError(err).Error("failed to load alert recipients")
		return
	}

	for _, u := range recipients {
		if err := t.send(u.TelegramChatID, msg); err != nil {
			t.log.WithError(err).WithField("chat_id", u.TelegramChatID).Warn("failed to deliver low stock alert")
		}
	}
}

func (t *Telegram) send(chatID, text string) error {
	payload, err := json.Marshal(map[string]string{"chat_id": chatID, "text": text})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	resp, err := t.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned %s", resp.Status)
	}
	return nil
}
