package generator

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/neurocrypto/newsforge/store"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

// ImageStore is the persistence slice the picture generator depends on.
type ImageStore interface {
	ImageTasks() ([]store.ImageTask, error)
	UpdateArticleImage(articleID string, imagePath string) error
}

// ImageRenderer is the rendering backend, see ai.HFImageClient.
type ImageRenderer interface {
	TextToImage(ctx context.Context, prompt string) ([]byte, error)
}

// PictureGenerator illustrates generated articles: every article without an
// image gets one rendered in its persona's current style and written under
// outputDir. A failed render leaves the article without an image; delivery
// handles that gracefully.
type PictureGenerator struct {
	store     ImageStore
	renderer  ImageRenderer
	outputDir string
}

func NewPictureGenerator(s ImageStore, renderer ImageRenderer, outputDir string) *PictureGenerator {
	return &PictureGenerator{store: s, renderer: renderer, outputDir: outputDir}
}

// Run renders all pending illustrations sequentially. Image backends rate
// limit aggressively, one in-flight render per run is intentional. Returns
// the number of images produced.
func (g *PictureGenerator) Run(ctx context.Context) (int, error) {
	tasks, err := g.store.ImageTasks()
	if err != nil {
		return 0, errors.Wrap(err, "fail to load image tasks")
	}
	if len(tasks) == 0 {
		Logger.Log.Info("no images to generate")
		return 0, nil
	}

	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return 0, errors.Wrap(err, "fail to create image output dir")
	}

	generated := 0
	for _, task := range tasks {
		if ctx.Err() != nil {
			return generated, ctx.Err()
		}
		if err := g.renderOne(ctx, task); err != nil {
			Logger.Log.Errorf("image generation for article %s failed: %v", task.ArticleID, err)
			continue
		}
		generated++
	}

	Logger.Log.Infof("image generation done: %d/%d images rendered", generated, len(tasks))
	return generated, nil
}

func (g *PictureGenerator) renderOne(ctx context.Context, task store.ImageTask) error {
	prompt := fmt.Sprintf("%s -- A creative digital illustration about '%s'", task.ImagePromptStyle, task.Title)

	img, err := g.renderer.TextToImage(ctx, prompt)
	if err != nil {
		return err
	}

	path := filepath.Join(g.outputDir, fmt.Sprintf("article_%s.png", task.ArticleID))
	if err := ioutil.WriteFile(path, img, 0644); err != nil {
		return errors.Wrap(err, "fail to write image file")
	}
	return g.store.UpdateArticleImage(task.ArticleID, path)
}
