package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/soledrop/soledrop-backend/internal/catalog"
	"github.com/soledrop/soledrop-backend/internal/media"
	"github.com/soledrop/soledrop-backend/pkg/enums"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

const maxLineBytes = 1 << 20

type reconciler interface {
	Reconcile(ctx context.Context, input catalog.ReconcileInput, uploads []media.Upload) (*catalog.ReconcileResult, error)
	ListSizings(ctx context.Context, system *enums.SizingSystem) ([]catalog.SizingDTO, error)
}

// variantRecord names its size either by id or by system and label.
type variantRecord struct {
	SizingID  *uuid.UUID       `json:"sizingId"`
	System    string           `json:"system"`
	Size      string           `json:"size"`
	Condition string           `json:"condition" validate:"required"`
	Price     *decimal.Decimal `json:"price" validate:"required"`
	Stock     int              `json:"stock" validate:"gte=0"`
}

type record struct {
	BrandName   string          `json:"brandName" validate:"required"`
	ModelName   string          `json:"modelName" validate:"required"`
	ItemName    string          `json:"itemName" validate:"required"`
	SKU         string          `json:"sku" validate:"required"`
	Category    string          `json:"category" validate:"required"`
	Gender      string          `json:"gender" validate:"required"`
	Description *string         `json:"description"`
	IsActive    *bool           `json:"isActive"`
	IsFeatured  *bool           `json:"isFeatured"`
	Variants    []variantRecord `json:"variants" validate:"dive"`
	Images      []string        `json:"images"`
}

// Summary counts per-line outcomes of one import run.
type Summary struct {
	Lines          int
	ListingCreated int
	Merged         int
	Failed         int
	PhotosAttached int
	PhotosFailed   int
}

type Importer struct {
	svc      reconciler
	baseDir  string
	logg     *logger.Logger
	validate *validator.Validate
	sizings  map[string]uuid.UUID
}

func NewImporter(svc reconciler, baseDir string, logg *logger.Logger) (*Importer, error) {
	if svc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Importer{svc: svc, baseDir: baseDir, logg: logg, validate: validator.New()}, nil
}

func sizingKey(system enums.SizingSystem, label string) string {
	return string(system) + "|" + strings.ToLower(strings.TrimSpace(label))
}

func (im *Importer) loadSizings(ctx context.Context) error {
	if im.sizings != nil {
		return nil
	}
	rows, err := im.svc.ListSizings(ctx, nil)
	if err != nil {
		return fmt.Errorf("load sizings: %w", err)
	}
	im.sizings = make(map[string]uuid.UUID, len(rows))
	for _, s := range rows {
		im.sizings[sizingKey(s.System, s.Label)] = s.ID
	}
	return nil
}

// Run reconciles every non-empty line of r. A bad line is logged and counted;
// only read errors and cancellation stop the run.
func (im *Importer) Run(ctx context.Context, r io.Reader) (Summary, error) {
	var summary Summary
	if err := im.loadSizings(ctx); err != nil {
		return summary, err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Lines++

		lineCtx := im.logg.WithField(ctx, "line", lineNo)
		result, err := im.importLine(lineCtx, []byte(line))
		if err != nil {
			summary.Failed++
			im.logg.Error(im.logg.WithField(lineCtx, "code", string(pkgerrors.CodeOf(err))), "import line failed", err)
			continue
		}

		if result.ListingCreated {
			summary.ListingCreated++
		} else {
			summary.Merged++
		}
		if result.Photos != nil {
			summary.PhotosAttached += len(result.Photos.Attached)
			summary.PhotosFailed += len(result.Photos.Failed)
		}
		im.logg.Info(im.logg.WithFields(lineCtx, map[string]any{
			"sku":             result.Item.SKU,
			"listing_id":      result.Listing.ID.String(),
			"listing_created": result.ListingCreated,
			"variants":        len(result.Listing.Variants),
		}), "import line reconciled")
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("read input: %w", err)
	}
	return summary, nil
}

func (im *Importer) importLine(ctx context.Context, line []byte) (*catalog.ReconcileResult, error) {
	var rec record
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid json")
	}
	if err := im.validate.Struct(rec); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid record")
	}
	input, err := im.toInput(rec)
	if err != nil {
		return nil, err
	}
	uploads, err := im.readImages(rec.Images)
	if err != nil {
		im.logg.WarnErr(ctx, "some images could not be read", err)
	}
	return im.svc.Reconcile(ctx, input, uploads)
}

func (im *Importer) toInput(rec record) (catalog.ReconcileInput, error) {
	category, err := enums.ParseCategory(rec.Category)
	if err != nil {
		return catalog.ReconcileInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	gender, err := enums.ParseGender(rec.Gender)
	if err != nil {
		return catalog.ReconcileInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid gender")
	}

	variants := make([]catalog.VariantInput, 0, len(rec.Variants))
	for i, v := range rec.Variants {
		sizingID, err := im.resolveSizing(v)
		if err != nil {
			return catalog.ReconcileInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("variant %d", i))
		}
		condition, err := enums.ParseCondition(v.Condition)
		if err != nil {
			return catalog.ReconcileInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("variant %d condition", i))
		}
		cents, err := catalog.PriceToCents(*v.Price)
		if err != nil {
			return catalog.ReconcileInput{}, err
		}
		variants = append(variants, catalog.VariantInput{
			SizingID:   sizingID,
			Condition:  condition,
			PriceCents: cents,
			Stock:      v.Stock,
		})
	}

	return catalog.ReconcileInput{
		BrandName:   rec.BrandName,
		ModelName:   rec.ModelName,
		ItemName:    rec.ItemName,
		SKU:         rec.SKU,
		Category:    category,
		Gender:      gender,
		Description: rec.Description,
		IsActive:    rec.IsActive,
		IsFeatured:  rec.IsFeatured,
		Variants:    variants,
	}, nil
}

func (im *Importer) resolveSizing(v variantRecord) (uuid.UUID, error) {
	if v.SizingID != nil {
		return *v.SizingID, nil
	}
	system, err := enums.ParseSizingSystem(v.System)
	if err != nil {
		return uuid.Nil, fmt.Errorf("unknown sizing system %q", v.System)
	}
	id, ok := im.sizings[sizingKey(system, v.Size)]
	if !ok {
		return uuid.Nil, fmt.Errorf("unknown size %q in %s", v.Size, system)
	}
	return id, nil
}

// readImages loads image paths relative to the input file. Unreadable files
// are skipped so the record itself still imports.
func (im *Importer) readImages(paths []string) ([]media.Upload, error) {
	var errs error
	uploads := make([]media.Upload, 0, len(paths))
	for _, p := range paths {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(im.baseDir, p)
		}
		data, err := os.ReadFile(full)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		uploads = append(uploads, media.Upload{FileName: filepath.Base(p), Data: data})
	}
	return uploads, errs
}
