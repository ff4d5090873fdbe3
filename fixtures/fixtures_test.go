package fixtures

import "testing"

func TestSplitRepoURLRejectsMissingSlash(t *testing.T) {
	if _, _, err := splitRepoURL("justonename"); err == nil {
		t.Fatalf("splitRepoURL() with no slash should return an error")
	}
}

func TestSplitRepoURLSplitsOwnerAndRepo(t *testing.T) {
	owner, repo, err := splitRepoURL("arctir/ksched")
	if err != nil {
		t.Fatalf("splitRepoURL() error: %v", err)
	}
	if owner != "arctir" || repo != "ksched" {
		t.Fatalf("splitRepoURL() = (%q, %q), want (arctir, ksched)", owner, repo)
	}
}

func TestGoldenTraceAssetPrefixFiltersNonScenarioAssets(t *testing.T) {
	refs := []GoldenTraceRef{
		{Name: "scenario-mlfq-promotion.json"},
		{Name: "README.md"},
	}
	var kept []GoldenTraceRef
	for _, r := range refs {
		if len(r.Name) >= len(GoldenTraceAssetPrefix) && r.Name[:len(GoldenTraceAssetPrefix)] == GoldenTraceAssetPrefix {
			kept = append(kept, r)
		}
	}
	if len(kept) != 1 || kept[0].Name != "scenario-mlfq-promotion.json" {
		t.Fatalf("expected exactly the scenario-prefixed asset to survive filtering, got %v", kept)
	}
}
