// Package delivery assembles the day's finished articles into per-user
// digest archives and hands them to a courier.
package delivery

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/neurocrypto/newsforge/model"
	"github.com/neurocrypto/newsforge/store"
	"github.com/neurocrypto/newsforge/utils"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

// DeliveryStore is the persistence slice the packager depends on.
type DeliveryStore interface {
	ArticlesForDelivery(since time.Time) (map[string][]store.DeliveryArticle, error)
	LogDelivery(entry model.DeliveryLog) error
}

// Courier sends a finished digest archive to its user. The Telegram bot is
// the production courier.
type Courier interface {
	SendDigest(userID string, zipPath string) error
}

// digestDoc is the flat per-article view written into the digest text file.
type digestDoc struct {
	Title     string
	Category  string
	Content   string
	ImagePath *string
}

// Packager builds one ZIP per user: a text document per article plus its
// illustration when one exists, then hands each archive to the courier and
// records planned versus actually delivered counts.
type Packager struct {
	store     DeliveryStore
	courier   Courier
	outputDir string
}

func NewPackager(s DeliveryStore, courier Courier, outputDir string) *Packager {
	return &Packager{store: s, courier: courier, outputDir: outputDir}
}

// Run packages and delivers everything generated since the given time.
// Returns the number of users that received their digest.
func (p *Packager) Run(since time.Time) (int, error) {
	byUser, err := p.store.ArticlesForDelivery(since)
	if err != nil {
		return 0, errors.Wrap(err, "fail to load articles for delivery")
	}
	if len(byUser) == 0 {
		Logger.Log.Info("nothing to deliver")
		return 0, nil
	}

	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return 0, errors.Wrap(err, "fail to create digest output dir")
	}

	userIDs := make([]string, 0, len(byUser))
	for userID := range byUser {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	delivered := 0
	for _, userID := range userIDs {
		articles := byUser[userID]
		zipPath, err := p.buildZip(userID, articles)
		if err != nil {
			Logger.Log.Errorf("fail to build digest for user %s: %v", userID, err)
			p.logDelivery(userID, len(articles), 0, "packaging_failed")
			continue
		}

		if err := p.courier.SendDigest(userID, zipPath); err != nil {
			Logger.Log.Errorf("fail to deliver digest to user %s: %v", userID, err)
			p.logDelivery(userID, len(articles), 0, "delivery_failed")
			continue
		}

		p.logDelivery(userID, len(articles), len(articles), "delivered")
		delivered++
	}

	Logger.Log.Infof("delivery done: %d/%d digests sent", delivered, len(userIDs))
	return delivered, nil
}

func (p *Packager) buildZip(userID string, articles []store.DeliveryArticle) (string, error) {
	username := fmt.Sprintf("user_%s", userID)
	if len(articles) > 0 && articles[0].Username != "" {
		username = articles[0].Username
	}

	zipPath := filepath.Join(p.outputDir, fmt.Sprintf("%s_digest_%s.zip", SanitizeFilename(username), utils.DateKey(time.Now())))
	out, err := os.Create(zipPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, article := range articles {
		doc := digestDoc{}
		if err := copier.Copy(&doc, &article); err != nil {
			return "", errors.Wrap(err, "fail to map article")
		}

		base := SanitizeFilename(doc.Title)
		if err := writeZipFile(zw, base+".txt", []byte(FormatDigestDoc(article))); err != nil {
			return "", err
		}

		if doc.ImagePath == nil {
			Logger.Log.Warnf("article %q has no illustration", doc.Title)
			continue
		}
		img, err := ioutil.ReadFile(*doc.ImagePath)
		if err != nil {
			Logger.Log.Warnf("illustration for %q unreadable, skipped: %v", doc.Title, err)
			continue
		}
		if err := writeZipFile(zw, base+".png", img); err != nil {
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return zipPath, nil
}

func (p *Packager) logDelivery(userID string, planned int, actual int, status string) {
	entry := model.DeliveryLog{
		DeliveryDate: utils.DateKey(time.Now()),
		UserID:       userID,
		PlannedCount: planned,
		ActualCount:  actual,
		Status:       status,
	}
	if err := p.store.LogDelivery(entry); err != nil {
		Logger.Log.Error("fail to record delivery log: ", err)
	}
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

// FormatDigestDoc renders one article as the plain-text document template.
func FormatDigestDoc(article store.DeliveryArticle) string {
	tokens := "N/A"
	if article.MatchedTokens != nil {
		parsed := []string{}
		if err := json.Unmarshal([]byte(*article.MatchedTokens), &parsed); err == nil && len(parsed) > 0 {
			tokens = strings.ToUpper(strings.Join(parsed, ", "))
		}
	}

	return fmt.Sprintf(
		"TITLE: %s\nCATEGORY: %s\nTOKEN: %s\nARTICLE:\n%s\n",
		article.Title, article.Category, tokens, article.Content,
	)
}

// SanitizeFilename keeps letters, digits, spaces and underscores, capped at
// a sane length for archive entries.
func SanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '_':
			return r
		default:
			return -1
		}
	}, name)
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) > 50 {
		cleaned = cleaned[:50]
	}
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}
