package db

import (
	"context"
	"errors"
	"testing"

	"github.com/Dicklesworthstone/siliconvault/internal/assets"
)

func TestInventoryRoundTrip(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	q := d.Queries()

	id, err := q.InsertInventory(ctx, InventoryItem{
		Category:       "Resistor",
		Name:           "R",
		Value:          "10k",
		Package:        "0805",
		Quantity:       50,
		Location:       "A1",
		MinStock:       5,
		ImagePaths:     assets.PathList{"r.png"},
		DatasheetPaths: nil,
	})
	if err != nil {
		t.Fatalf("InsertInventory() error = %v", err)
	}

	got, err := q.GetInventory(ctx, id)
	if err != nil {
		t.Fatalf("GetInventory() error = %v", err)
	}
	if got.Quantity != 50 || got.Location != "A1" || got.MinStock != 5 {
		t.Errorf("GetInventory() = %+v", got)
	}
	if !got.ImagePaths.Equal(assets.PathList{"r.png"}) {
		t.Errorf("ImagePaths = %v, want [r.png]", got.ImagePaths)
	}
	if got.DatasheetPaths == nil || len(got.DatasheetPaths) != 0 {
		t.Errorf("DatasheetPaths = %#v, want empty list", got.DatasheetPaths)
	}

	if _, err := q.GetInventory(ctx, id+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetInventory(missing) error = %v, want ErrNotFound", err)
	}
}

func TestFindInventoryByIdentity(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	q := d.Queries()

	first, _ := q.InsertInventory(ctx, InventoryItem{Name: "C", Value: "100n", Package: "0603"})
	if _, err := q.InsertInventory(ctx, InventoryItem{Name: "C", Value: "100n", Package: "0603"}); err != nil {
		t.Fatal(err)
	}

	got, err := q.FindInventoryByIdentity(ctx, "C", "0603", "100n")
	if err != nil {
		t.Fatalf("FindInventoryByIdentity() error = %v", err)
	}
	if got == nil || got.ID != first {
		t.Fatalf("FindInventoryByIdentity() = %+v, want id %d", got, first)
	}

	// Package and value are part of the identity.
	if got, _ := q.FindInventoryByIdentity(ctx, "C", "0805", "100n"); got != nil {
		t.Errorf("different package matched: %+v", got)
	}
	if got, _ := q.FindInventoryByIdentity(ctx, "C", "0603", "1u"); got != nil {
		t.Errorf("different value matched: %+v", got)
	}
}

func TestMergeInventoryKeepsStock(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	q := d.Queries()

	id, _ := q.InsertInventory(ctx, InventoryItem{Name: "U1", Quantity: 50, Location: "Drawer", MinStock: 10})
	if err := q.MergeInventory(ctx, id, "IC", 3, assets.PathList{"u1.png"}, assets.PathList{"u1.pdf"}); err != nil {
		t.Fatalf("MergeInventory() error = %v", err)
	}

	got, _ := q.GetInventory(ctx, id)
	if got.Quantity != 50 || got.Location != "Drawer" {
		t.Errorf("stock changed by merge: %+v", got)
	}
	if got.Category != "IC" || got.MinStock != 3 || !got.DatasheetPaths.Equal(assets.PathList{"u1.pdf"}) {
		t.Errorf("merge not applied: %+v", got)
	}
}

func TestListByIDs(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	q := d.Queries()

	a, _ := q.InsertInventory(ctx, InventoryItem{Name: "a"})
	_, _ = q.InsertInventory(ctx, InventoryItem{Name: "b"})
	c, _ := q.InsertInventory(ctx, InventoryItem{Name: "c"})

	items, err := q.ListInventoryByIDs(ctx, []int64{c, a, 999})
	if err != nil {
		t.Fatalf("ListInventoryByIDs() error = %v", err)
	}
	if len(items) != 2 || items[0].ID != a || items[1].ID != c {
		t.Errorf("ListInventoryByIDs() = %+v", items)
	}

	empty, err := q.ListInventoryByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("ListInventoryByIDs(nil) = %v, %v", empty, err)
	}
}

func TestProjectsAndLinks(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	q := d.Queries()

	inv, _ := q.InsertInventory(ctx, InventoryItem{Name: "LED"})
	pid, err := q.InsertProject(ctx, Project{Name: "Blinker", Files: assets.PathList{"s.pdf"}})
	if err != nil {
		t.Fatalf("InsertProject() error = %v", err)
	}
	explicit, err := q.InsertProject(ctx, Project{Name: "Old", CreatedAt: "2020-01-01 00:00:00", OrderIndex: 4})
	if err != nil {
		t.Fatalf("InsertProject(created_at) error = %v", err)
	}

	p, err := q.GetProject(ctx, pid)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if p.CreatedAt == "" {
		t.Error("CreatedAt should take the column default")
	}
	if old, _ := q.GetProject(ctx, explicit); old.CreatedAt != "2020-01-01 00:00:00" || old.OrderIndex != 4 {
		t.Errorf("explicit project = %+v", old)
	}

	if found, _ := q.FindProjectByName(ctx, "Blinker"); found == nil || found.ID != pid {
		t.Errorf("FindProjectByName() = %+v", found)
	}
	if found, _ := q.FindProjectByName(ctx, "nope"); found != nil {
		t.Errorf("FindProjectByName(nope) = %+v", found)
	}

	if err := q.InsertProjectItem(ctx, ProjectItem{ProjectID: pid, InventoryID: inv, Quantity: 2}); err != nil {
		t.Fatalf("InsertProjectItem() error = %v", err)
	}
	exists, err := q.ProjectItemExists(ctx, pid, inv)
	if err != nil || !exists {
		t.Fatalf("ProjectItemExists() = %v, %v", exists, err)
	}

	links, _ := q.ListProjectItemsFor(ctx, []int64{pid})
	if len(links) != 1 || links[0].Quantity != 2 {
		t.Errorf("ListProjectItemsFor() = %+v", links)
	}

	if err := q.MergeProject(ctx, pid, "new desc", assets.PathList{"t.pdf"}); err != nil {
		t.Fatalf("MergeProject() error = %v", err)
	}
	if err := q.DeleteProjectItems(ctx, pid); err != nil {
		t.Fatalf("DeleteProjectItems() error = %v", err)
	}
	if exists, _ := q.ProjectItemExists(ctx, pid, inv); exists {
		t.Error("link still present after DeleteProjectItems")
	}

	inventory, projects, linkCount, err := q.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if inventory != 1 || projects != 2 || linkCount != 0 {
		t.Errorf("Counts() = %d, %d, %d", inventory, projects, linkCount)
	}
}

func TestInsertProjectItem_ForeignKeys(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	err := d.Queries().InsertProjectItem(ctx, ProjectItem{ProjectID: 1, InventoryID: 1, Quantity: 1})
	if err == nil {
		t.Fatal("InsertProjectItem() should fail for missing rows")
	}
}

func TestRecordAudit(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	err := d.Record(ctx, AuditEntry{
		Op:     OpImport,
		Target: TargetInventory,
		Key:    "log.backup.import",
		Params: map[string]any{"invCount": 3},
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := d.ListAudit(ctx, 10)
	if err != nil {
		t.Fatalf("ListAudit() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Op != OpImport || e.Target != TargetInventory || e.Key != "log.backup.import" {
		t.Errorf("entry = %+v", e)
	}
	if n, ok := e.Params["invCount"].(float64); !ok || n != 3 {
		t.Errorf("Params = %#v", e.Params)
	}
	if e.At.IsZero() {
		t.Error("At should be set")
	}

	if err := d.Record(ctx, AuditEntry{Target: TargetInventory}); err == nil {
		t.Error("Record() without op should fail")
	}
}

func TestRecordAudit_Trims(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < MaxAuditEntries+5; i++ {
		if err := d.Record(ctx, AuditEntry{Op: OpStock, Target: TargetInventory, TargetID: int64(i)}); err != nil {
			t.Fatalf("Record(%d) error = %v", i, err)
		}
	}

	entries, err := d.ListAudit(ctx, 0)
	if err != nil {
		t.Fatalf("ListAudit() error = %v", err)
	}
	if len(entries) != MaxAuditEntries {
		t.Fatalf("len(entries) = %d, want %d", len(entries), MaxAuditEntries)
	}
	if entries[0].TargetID != int64(MaxAuditEntries+4) {
		t.Errorf("newest TargetID = %d", entries[0].TargetID)
	}
}
