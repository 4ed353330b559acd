package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/usgsxplore/common"
	"github.com/airbusgeo/usgsxplore/interface/provider"
	"github.com/airbusgeo/usgsxplore/interface/usgs"
)

// stubProvider writes a fake product file, or fails
type stubProvider struct {
	name  string
	err   error
	calls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Download(ctx context.Context, scene usgs.SceneRecord, localDir string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	localFile := filepath.Join(localDir, scene.DisplayID+"."+scene.Dataset.Info().Extension)
	if err := os.WriteFile(localFile, []byte(p.name), 0644); err != nil {
		return "", err
	}
	return localFile, nil
}

func testScene(i int) usgs.SceneRecord {
	return usgs.SceneRecord{
		EntityID:  fmt.Sprintf("LT5196030199517%dMPS00", i),
		DisplayID: fmt.Sprintf("LT05_L1TP_196030_1995062%d_20200907_02_T1", i),
		Dataset:   common.LandsatTmC2L1,
	}
}

func TestProcessSceneFallback(t *testing.T) {
	ctx := context.Background()
	localDir := t.TempDir()
	failing := &stubProvider{name: "failing", err: fmt.Errorf("not here")}
	working := &stubProvider{name: "working"}

	localFile, err := ProcessScene(ctx, []provider.ImageProvider{failing, working}, testScene(1), localDir)
	if err != nil {
		t.Fatal(err)
	}
	if failing.calls != 1 || working.calls != 1 {
		t.Errorf("expecting one call per provider, got %d/%d", failing.calls, working.calls)
	}
	if expected := filepath.Join(localDir, testScene(1).DisplayID+".tar"); localFile != expected {
		t.Errorf("expecting %s, got %s", expected, localFile)
	}
	if _, err := os.Stat(localFile); err != nil {
		t.Errorf("product must be moved to the destination directory: %v", err)
	}

	// the staging workdir must be cleaned up
	entries, err := os.ReadDir(localDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expecting the product only in %s, got %d entries", localDir, len(entries))
	}
}

func TestProcessSceneAllProvidersFail(t *testing.T) {
	ctx := context.Background()
	localDir := t.TempDir()
	p1 := &stubProvider{name: "p1", err: fmt.Errorf("not here")}
	p2 := &stubProvider{name: "p2", err: fmt.Errorf("not here either")}

	if _, err := ProcessScene(ctx, []provider.ImageProvider{p1, p2}, testScene(1), localDir); err == nil {
		t.Fatal("expecting an error")
	}
	entries, err := os.ReadDir(localDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expecting an empty destination directory, got %d entries", len(entries))
	}
}

func TestProcessScenes(t *testing.T) {
	ctx := context.Background()
	localDir := t.TempDir()
	working := &stubProvider{name: "working"}
	scenes := []usgs.SceneRecord{testScene(1), testScene(2), testScene(3)}

	results := ProcessScenes(ctx, []provider.ImageProvider{working}, scenes, localDir)
	if len(results) != 3 {
		t.Fatalf("expecting 3 results, got %d", len(results))
	}
	for i, result := range results {
		if result.Err != nil {
			t.Errorf("scene %d: %v", i, result.Err)
		}
		if result.Scene.EntityID != scenes[i].EntityID {
			t.Errorf("scene %d: results must keep the input order", i)
		}
		if _, err := os.Stat(result.LocalFile); err != nil {
			t.Errorf("scene %d: %v", i, err)
		}
	}

	// a second run skips every scene without calling any provider
	working.calls = 0
	results = ProcessScenes(ctx, []provider.ImageProvider{working}, scenes, localDir)
	for i, result := range results {
		if result.Err != nil {
			t.Errorf("scene %d: %v", i, result.Err)
		}
	}
	if working.calls != 0 {
		t.Errorf("already downloaded scenes must be skipped, got %d calls", working.calls)
	}
}

func TestProcessScenesKeepsGoingAfterFailure(t *testing.T) {
	ctx := context.Background()
	localDir := t.TempDir()
	// fails on the second scene only
	flaky := &stubProvider{name: "flaky"}
	scenes := []usgs.SceneRecord{testScene(1), testScene(2), testScene(3)}

	second := scenes[1]
	selective := providerFunc(func(ctx context.Context, scene usgs.SceneRecord, dir string) (string, error) {
		if scene.EntityID == second.EntityID {
			return "", fmt.Errorf("transient failure")
		}
		return flaky.Download(ctx, scene, dir)
	})

	results := ProcessScenes(ctx, []provider.ImageProvider{selective}, scenes, localDir)
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("unexpected errors: %v / %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Error("expecting an error on the second scene")
	}
}

// providerFunc adapts a function to ImageProvider
type providerFunc func(ctx context.Context, scene usgs.SceneRecord, localDir string) (string, error)

func (f providerFunc) Name() string { return "func" }
func (f providerFunc) Download(ctx context.Context, scene usgs.SceneRecord, localDir string) (string, error) {
	return f(ctx, scene, localDir)
}
