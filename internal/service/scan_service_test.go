package service

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"digital-surveyor/internal/model"
	"digital-surveyor/internal/pricing"
	"digital-surveyor/internal/refinement"
	"digital-surveyor/internal/repository"
	"digital-surveyor/internal/severity"
	"digital-surveyor/internal/taxonomy"
	"digital-surveyor/pkg/models"
)

func seedScan(repo *memoryRepo, scanID, userID string) *model.Scan {
	scan := &model.Scan{
		ID:       scanID,
		UserID:   userID,
		Strategy: "detailed",
		Currency: "INR",
		Status:   ScanStatusCompleted,
		Damages: []model.Damage{
			{
				ID: scanID + "-d0", ScanID: scanID, Index: 0,
				PartName: "door", DamageType: "dent", RawLabel: "Dent",
				X1: 10, Y1: 10, X2: 50, Y2: 30,
				PreliminarySeverity: 70, PreliminaryCost: 8000,
				Severity: 70, Action: string(taxonomy.ActionDentingPainting), Cost: 8000,
				Status: model.DamageStatusPreliminary,
			},
			{
				ID: scanID + "-d1", ScanID: scanID, Index: 1,
				PartName: "hood", DamageType: "scratch", RawLabel: "scratch",
				Severity: 50, Action: string(taxonomy.ActionBuffing), Cost: 2000,
				Status: model.DamageStatusPreliminary,
			},
		},
		TotalCost: 10000,
	}
	repo.scans[scanID] = scan
	return scan
}

func refineImages(t *testing.T) [refinement.Angles]models.RefineImage {
	t.Helper()
	var images [refinement.Angles]models.RefineImage
	for i := range images {
		images[i] = models.RefineImage{Data: checkerboardPNG(t, 48, 4), Filename: "close.png"}
	}
	return images
}

func TestRefineDepthFailureEveryAngle(t *testing.T) {
	f := newFixture(t, &fakeDepth{err: errors.New("depth model down")})
	seedScan(f.repo, "scan-1", "user-1")

	resp, err := f.scans.Refine(context.Background(), models.RefineRequest{
		DamageID: "scan-1-d0",
		Images:   refineImages(t),
	})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}

	if resp.FinalSeverity != 50 || resp.Confidence != refinement.ConfidenceHigh {
		t.Errorf("expected 50/high, got %d/%s", resp.FinalSeverity, resp.Confidence)
	}
	// door 12000 × 0.5
	if resp.Action != string(taxonomy.ActionPolishPaint) || resp.Cost != 6000 {
		t.Errorf("expected Polish/Paint 6000, got %s %v", resp.Action, resp.Cost)
	}
	if len(resp.CloseupURLs) != refinement.Angles {
		t.Fatalf("expected %d close-ups, got %v", refinement.Angles, resp.CloseupURLs)
	}
	for _, url := range resp.CloseupURLs {
		if !storedFile(t, f.store, url) {
			t.Errorf("close-up %q not stored", url)
		}
	}

	damage, _ := f.repo.GetDamage("scan-1-d0")
	if damage.Status != model.DamageStatusVerified {
		t.Errorf("damage must be verified, got %s", damage.Status)
	}
	if damage.PreliminarySeverity != 70 || damage.PreliminaryCost != 8000 {
		t.Errorf("preliminary values must survive refinement: %+v", damage)
	}
	if damage.PartName != "door" || damage.DamageType != "dent" {
		t.Errorf("refinement must not change part/type without overrides: %s/%s", damage.PartName, damage.DamageType)
	}

	scan, _ := f.repo.GetByID("scan-1")
	if scan.TotalCost != 8000 {
		t.Errorf("scan total must be recomputed, got %v", scan.TotalCost)
	}

	report, err := f.scans.GetDamage("scan-1-d0")
	if err != nil {
		t.Fatalf("GetDamage: %v", err)
	}
	if report.Refinement == nil || len(report.Refinement.SeverityScores) != refinement.Angles {
		t.Errorf("verified damage must expose refinement: %+v", report.Refinement)
	}

	_, err = f.scans.Refine(context.Background(), models.RefineRequest{DamageID: "scan-1-d0", Images: refineImages(t)})
	if !errors.Is(err, ErrAlreadyRefined) {
		t.Errorf("second refinement: expected ErrAlreadyRefined, got %v", err)
	}
}

func TestRefineOverrides(t *testing.T) {
	f := newFixture(t, nil)
	seedScan(f.repo, "scan-1", "user-1")

	resp, err := f.scans.Refine(context.Background(), models.RefineRequest{
		DamageID:   "scan-1-d1",
		PartName:   "Rear Bumper",
		DamageType: "Scratches",
		Images:     refineImages(t),
	})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	// scratch всегда 50, bumper 8000 × 0.5
	if resp.FinalSeverity != 50 || resp.Cost != 4000 || resp.Currency != "INR" {
		t.Errorf("expected 50 / 4000 INR, got %d / %v %s", resp.FinalSeverity, resp.Cost, resp.Currency)
	}

	damage, _ := f.repo.GetDamage("scan-1-d1")
	if damage.PartName != "hood" || damage.DamageType != "scratch" {
		t.Errorf("overrides must not be stored: %s/%s", damage.PartName, damage.DamageType)
	}
	if damage.Cost != 4000 || damage.Status != model.DamageStatusVerified {
		t.Errorf("override must still drive the verdict: %v %s", damage.Cost, damage.Status)
	}
}

func TestRefineUsesRawPartName(t *testing.T) {
	tests := []struct {
		name      string
		override  string
		partLabel string
		cost      float64
	}{
		{"override outside part vocabulary", "rear quarter panel", "", 9000},
		{"stored detector label", "", "Roof", 10000},
		{"no label falls back to part", "", "", 6000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &fakeDepth{err: errors.New("depth model down")})
			scan := seedScan(f.repo, "scan-1", "user-1")
			scan.Damages[0].PartLabel = tt.partLabel

			resp, err := f.scans.Refine(context.Background(), models.RefineRequest{
				DamageID: "scan-1-d0",
				PartName: tt.override,
				Images:   refineImages(t),
			})
			if err != nil {
				t.Fatalf("Refine: %v", err)
			}
			// Все ракурсы дают 50, значит Polish/Paint по половине базовой цены
			if resp.Action != string(taxonomy.ActionPolishPaint) || resp.Cost != tt.cost {
				t.Errorf("expected Polish/Paint %v, got %s %v", tt.cost, resp.Action, resp.Cost)
			}
			damage, _ := f.repo.GetDamage("scan-1-d0")
			if damage.PartName != "door" {
				t.Errorf("stored part changed to %q", damage.PartName)
			}
		})
	}
}

func TestRefineCoarseScanKeepsCurrency(t *testing.T) {
	f := newFixture(t, &fakeDepth{err: errors.New("depth model down")})
	scan := seedScan(f.repo, "scan-1", "user-1")
	scan.Strategy = pricing.StrategyCoarse
	scan.Currency = "USD"
	scan.Damages[0].Action, scan.Damages[0].Cost, scan.Damages[0].PreliminaryCost = string(taxonomy.ActionRepair), 200, 200
	scan.Damages[1].Action, scan.Damages[1].Cost = string(taxonomy.ActionRepair), 300
	scan.TotalCost = 500

	resp, err := f.scans.Refine(context.Background(), models.RefineRequest{
		DamageID: "scan-1-d0",
		Images:   refineImages(t),
	})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	// door: замена 900 USD, база 450, Polish/Paint 225
	if resp.Cost != 225 || resp.Currency != "USD" {
		t.Errorf("expected 225 USD, got %v %s", resp.Cost, resp.Currency)
	}

	stored, _ := f.repo.GetByID("scan-1")
	if stored.TotalCost != 525 || stored.Currency != "USD" {
		t.Errorf("scan total must stay in USD: %v %s", stored.TotalCost, stored.Currency)
	}
}

func TestRefineUnknownStrategy(t *testing.T) {
	f := newFixture(t, nil)
	scan := seedScan(f.repo, "scan-1", "user-1")
	scan.Strategy = "legacy"

	_, err := f.scans.Refine(context.Background(), models.RefineRequest{DamageID: "scan-1-d0", Images: refineImages(t)})
	if err == nil {
		t.Fatal("expected error for unknown pricing strategy")
	}
	damage, _ := f.repo.GetDamage("scan-1-d0")
	if damage.Status != model.DamageStatusPreliminary {
		t.Errorf("damage must stay preliminary, got %s", damage.Status)
	}
}

func TestRefineConcurrentRequests(t *testing.T) {
	f := newFixture(t, nil)
	seedScan(f.repo, "scan-1", "user-1")

	const workers = 4
	images := refineImages(t)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.scans.Refine(context.Background(), models.RefineRequest{DamageID: "scan-1-d0", Images: images})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ErrAlreadyRefined):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("damage must be refined exactly once, got %d", succeeded)
	}
}

func TestApplyRefinementRejectsStaleCopy(t *testing.T) {
	repo := newMemoryRepo()
	seedScan(repo, "scan-1", "user-1")

	first, _ := repo.GetDamage("scan-1-d0")
	stale, _ := repo.GetDamage("scan-1-d0")

	first.Status, first.Cost = model.DamageStatusVerified, 6000
	if err := repo.ApplyRefinement(first); err != nil {
		t.Fatalf("ApplyRefinement: %v", err)
	}
	stale.Status, stale.Cost = model.DamageStatusVerified, 24000
	if err := repo.ApplyRefinement(stale); !errors.Is(err, ErrAlreadyRefined) {
		t.Fatalf("stale copy: expected ErrAlreadyRefined, got %v", err)
	}

	damage, _ := repo.GetDamage("scan-1-d0")
	if damage.Cost != 6000 {
		t.Errorf("first refinement must win, got cost %v", damage.Cost)
	}
}

// blockingDepth отвечает только по отмене контекста
type blockingDepth struct {
	mu       sync.Mutex
	deadline bool
}

func (d *blockingDepth) EstimateDepth(ctx context.Context, crop image.Image) (models.DepthMap, error) {
	_, ok := ctx.Deadline()
	d.mu.Lock()
	d.deadline = d.deadline || ok
	d.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(2 * time.Second):
		return nil, errors.New("depth model never answered")
	}
}

func TestRefineTimeout(t *testing.T) {
	f := newFixture(t, nil)
	seedScan(f.repo, "scan-1", "user-1")

	depth := &blockingDepth{}
	logger := quietLogger()
	scans := NewScanService(f.repo, refinement.NewRefiner(severity.NewEstimator(depth, logger), logger), f.store, 20*time.Millisecond, logger)

	start := time.Now()
	_, err := scans.Refine(context.Background(), models.RefineRequest{DamageID: "scan-1-d0", Images: refineImages(t)})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("refinement must stop at the timeout, took %v", elapsed)
	}
	if !depth.deadline {
		t.Error("depth model must receive a context with deadline")
	}

	damage, _ := f.repo.GetDamage("scan-1-d0")
	if damage.Status != model.DamageStatusPreliminary {
		t.Errorf("timed out refinement must not be stored, got %s", damage.Status)
	}
}

func TestRefineErrors(t *testing.T) {
	f := newFixture(t, nil)
	seedScan(f.repo, "scan-1", "user-1")

	_, err := f.scans.Refine(context.Background(), models.RefineRequest{DamageID: "missing", Images: refineImages(t)})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown damage: expected ErrNotFound, got %v", err)
	}

	images := refineImages(t)
	images[1].Data = []byte("broken")
	_, err = f.scans.Refine(context.Background(), models.RefineRequest{DamageID: "scan-1-d0", Images: images})
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("broken close-up: expected ErrInvalidImage, got %v", err)
	}

	damage, _ := f.repo.GetDamage("scan-1-d0")
	if damage.Status != model.DamageStatusPreliminary {
		t.Errorf("failed refinement must not change the damage")
	}
}

func TestListGetDeleteScans(t *testing.T) {
	f := newFixture(t, nil)
	seedScan(f.repo, "scan-1", "user-1")
	seedScan(f.repo, "scan-2", "user-1")
	seedScan(f.repo, "scan-3", "user-2")

	scans, total, err := f.scans.ListScans("user-1", 1, 10)
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if total != 2 || len(scans) != 2 {
		t.Errorf("expected 2 scans for user-1, got %d (total %d)", len(scans), total)
	}

	scan, err := f.scans.GetScan("scan-1")
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if len(scan.Damages) != 2 || scan.Damages[0].ID != "scan-1-d0" {
		t.Errorf("damages must keep detection order: %+v", scan.Damages)
	}

	dir := filepath.Join(f.store.staticDir, "scans", "scan-1")
	if _, err := f.store.Save("scan-1", "original.jpg", []byte{1, 2, 3}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := f.scans.DeleteScan("scan-1"); err != nil {
		t.Fatalf("DeleteScan: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("scan directory must be removed, stat err = %v", err)
	}
	if _, err := f.scans.GetScan("scan-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("deleted scan: expected ErrNotFound, got %v", err)
	}
	if err := f.scans.DeleteScan("scan-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestImageExt(t *testing.T) {
	tests := map[string]string{
		"car.PNG":  ".png",
		"car.jpeg": ".jpeg",
		"car":      ".jpg",
		"car.exe":  ".jpg",
	}
	for in, want := range tests {
		if got := ImageExt(in); got != want {
			t.Errorf("ImageExt(%q) = %q, want %q", in, got, want)
		}
	}
}
