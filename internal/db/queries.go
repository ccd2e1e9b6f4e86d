package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dicklesworthstone/siliconvault/internal/assets"
)

// InventoryItem is one inventory row.
type InventoryItem struct {
	ID             int64
	Category       string
	Name           string
	Value          string
	Package        string
	Quantity       int64
	Location       string
	MinStock       int64
	ImagePaths     assets.PathList
	DatasheetPaths assets.PathList
}

// Project is one projects row.
type Project struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   string
	OrderIndex  int64
	Files       assets.PathList
}

// ProjectItem links a project to an inventory item.
type ProjectItem struct {
	ProjectID   int64
	InventoryID int64
	Quantity    int64
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the row primitives. It is bound either to the connection
// (DB.Queries) or to a transaction (DB.WithTx).
type Queries struct {
	q querier
}

const inventoryColumns = `id, category, name, value, package, quantity, location, min_stock, image_paths, datasheet_paths`

const projectColumns = `id, name, description, created_at, order_index, files`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInventory(row rowScanner) (*InventoryItem, error) {
	var it InventoryItem
	if err := row.Scan(&it.ID, &it.Category, &it.Name, &it.Value, &it.Package,
		&it.Quantity, &it.Location, &it.MinStock, &it.ImagePaths, &it.DatasheetPaths); err != nil {
		return nil, err
	}
	return &it, nil
}

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.OrderIndex, &p.Files); err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertInventory inserts a row and returns its new id. item.ID is ignored.
func (q *Queries) InsertInventory(ctx context.Context, item InventoryItem) (int64, error) {
	res, err := q.q.ExecContext(ctx, `
INSERT INTO inventory (category, name, value, package, quantity, location, min_stock, image_paths, datasheet_paths)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Category, item.Name, item.Value, item.Package, item.Quantity, item.Location,
		item.MinStock, item.ImagePaths, item.DatasheetPaths)
	if err != nil {
		return 0, fmt.Errorf("insert inventory: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert inventory: last insert id: %w", err)
	}
	return id, nil
}

// UpdateInventory replaces every column of an existing row.
func (q *Queries) UpdateInventory(ctx context.Context, item InventoryItem) error {
	_, err := q.q.ExecContext(ctx, `
UPDATE inventory SET category = ?, name = ?, value = ?, package = ?, quantity = ?, location = ?,
    min_stock = ?, image_paths = ?, datasheet_paths = ?
WHERE id = ?`,
		item.Category, item.Name, item.Value, item.Package, item.Quantity, item.Location,
		item.MinStock, item.ImagePaths, item.DatasheetPaths, item.ID)
	if err != nil {
		return fmt.Errorf("update inventory %d: %w", item.ID, err)
	}
	return nil
}

// MergeInventory overwrites the fields a bundle import may change. Quantity
// and location are left alone.
func (q *Queries) MergeInventory(ctx context.Context, id int64, category string, minStock int64, images, datasheets assets.PathList) error {
	_, err := q.q.ExecContext(ctx, `
UPDATE inventory SET category = ?, min_stock = ?, image_paths = ?, datasheet_paths = ?
WHERE id = ?`, category, minStock, images, datasheets, id)
	if err != nil {
		return fmt.Errorf("merge inventory %d: %w", id, err)
	}
	return nil
}

// GetInventory returns the row with id, or ErrNotFound.
func (q *Queries) GetInventory(ctx context.Context, id int64) (*InventoryItem, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+inventoryColumns+` FROM inventory WHERE id = ?`, id)
	item, err := scanInventory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("inventory %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get inventory %d: %w", id, err)
	}
	return item, nil
}

// FindInventoryByIdentity returns the oldest row matching (name, package,
// value), or nil when there is none.
func (q *Queries) FindInventoryByIdentity(ctx context.Context, name, pkg, value string) (*InventoryItem, error) {
	row := q.q.QueryRowContext(ctx, `
SELECT `+inventoryColumns+` FROM inventory
WHERE name = ? AND package = ? AND value = ?
ORDER BY id LIMIT 1`, name, pkg, value)
	item, err := scanInventory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find inventory: %w", err)
	}
	return item, nil
}

// ListInventory returns every row ordered by id.
func (q *Queries) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	return q.listInventory(ctx, `SELECT `+inventoryColumns+` FROM inventory ORDER BY id`)
}

// ListInventoryByIDs returns the rows whose id is in ids, ordered by id.
// Unknown ids are ignored.
func (q *Queries) ListInventoryByIDs(ctx context.Context, ids []int64) ([]InventoryItem, error) {
	if len(ids) == 0 {
		return []InventoryItem{}, nil
	}
	placeholders, args := inClause(ids)
	return q.listInventory(ctx, `SELECT `+inventoryColumns+` FROM inventory WHERE id IN (`+placeholders+`) ORDER BY id`, args...)
}

func (q *Queries) listInventory(ctx context.Context, query string, args ...any) ([]InventoryItem, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	out := []InventoryItem{}
	for rows.Next() {
		item, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory: %w", err)
	}
	return out, nil
}

// InsertProject inserts a row and returns its new id. An empty CreatedAt
// takes the database default.
func (q *Queries) InsertProject(ctx context.Context, p Project) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if strings.TrimSpace(p.CreatedAt) == "" {
		res, err = q.q.ExecContext(ctx, `
INSERT INTO projects (name, description, order_index, files) VALUES (?, ?, ?, ?)`,
			p.Name, p.Description, p.OrderIndex, p.Files)
	} else {
		res, err = q.q.ExecContext(ctx, `
INSERT INTO projects (name, description, created_at, order_index, files) VALUES (?, ?, ?, ?, ?)`,
			p.Name, p.Description, p.CreatedAt, p.OrderIndex, p.Files)
	}
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert project: last insert id: %w", err)
	}
	return id, nil
}

// MergeProject overwrites a project's description and files.
func (q *Queries) MergeProject(ctx context.Context, id int64, description string, files assets.PathList) error {
	_, err := q.q.ExecContext(ctx, `UPDATE projects SET description = ?, files = ? WHERE id = ?`, description, files, id)
	if err != nil {
		return fmt.Errorf("merge project %d: %w", id, err)
	}
	return nil
}

// GetProject returns the project with id, or ErrNotFound.
func (q *Queries) GetProject(ctx context.Context, id int64) (*Project, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return p, nil
}

// FindProjectByName returns the oldest project named name, or nil.
func (q *Queries) FindProjectByName(ctx context.Context, name string) (*Project, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE name = ? ORDER BY id LIMIT 1`, name)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}
	return p, nil
}

// ListProjects returns every project in display order.
func (q *Queries) ListProjects(ctx context.Context) ([]Project, error) {
	return q.listProjects(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY order_index, id`)
}

// ListProjectsByIDs returns the projects whose id is in ids.
func (q *Queries) ListProjectsByIDs(ctx context.Context, ids []int64) ([]Project, error) {
	if len(ids) == 0 {
		return []Project{}, nil
	}
	placeholders, args := inClause(ids)
	return q.listProjects(ctx, `SELECT `+projectColumns+` FROM projects WHERE id IN (`+placeholders+`) ORDER BY order_index, id`, args...)
}

func (q *Queries) listProjects(ctx context.Context, query string, args ...any) ([]Project, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return out, nil
}

// ListProjectItems returns every link.
func (q *Queries) ListProjectItems(ctx context.Context) ([]ProjectItem, error) {
	return q.listProjectItems(ctx, `SELECT project_id, inventory_id, quantity FROM project_items ORDER BY project_id, inventory_id`)
}

// ListProjectItemsFor returns the links belonging to the given projects.
func (q *Queries) ListProjectItemsFor(ctx context.Context, projectIDs []int64) ([]ProjectItem, error) {
	if len(projectIDs) == 0 {
		return []ProjectItem{}, nil
	}
	placeholders, args := inClause(projectIDs)
	return q.listProjectItems(ctx, `
SELECT project_id, inventory_id, quantity FROM project_items
WHERE project_id IN (`+placeholders+`) ORDER BY project_id, inventory_id`, args...)
}

func (q *Queries) listProjectItems(ctx context.Context, query string, args ...any) ([]ProjectItem, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list project items: %w", err)
	}
	defer rows.Close()

	out := []ProjectItem{}
	for rows.Next() {
		var it ProjectItem
		if err := rows.Scan(&it.ProjectID, &it.InventoryID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan project item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project items: %w", err)
	}
	return out, nil
}

// DeleteProjectItems removes every link of a project.
func (q *Queries) DeleteProjectItems(ctx context.Context, projectID int64) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM project_items WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete project items for %d: %w", projectID, err)
	}
	return nil
}

// ProjectItemExists reports whether the (project, inventory) pair is linked.
func (q *Queries) ProjectItemExists(ctx context.Context, projectID, inventoryID int64) (bool, error) {
	var one int
	err := q.q.QueryRowContext(ctx, `
SELECT 1 FROM project_items WHERE project_id = ? AND inventory_id = ? LIMIT 1`, projectID, inventoryID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check project item: %w", err)
	}
	return true, nil
}

// InsertProjectItem adds a link.
func (q *Queries) InsertProjectItem(ctx context.Context, it ProjectItem) error {
	_, err := q.q.ExecContext(ctx, `
INSERT INTO project_items (project_id, inventory_id, quantity) VALUES (?, ?, ?)`,
		it.ProjectID, it.InventoryID, it.Quantity)
	if err != nil {
		return fmt.Errorf("insert project item (%d, %d): %w", it.ProjectID, it.InventoryID, err)
	}
	return nil
}

// Counts returns the number of inventory rows, projects and links.
func (q *Queries) Counts(ctx context.Context) (inventory, projects, links int, err error) {
	err = q.q.QueryRowContext(ctx, `
SELECT (SELECT COUNT(*) FROM inventory), (SELECT COUNT(*) FROM projects), (SELECT COUNT(*) FROM project_items)`).
		Scan(&inventory, &projects, &links)
	if err != nil {
		err = fmt.Errorf("count rows: %w", err)
	}
	return inventory, projects, links, err
}

func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	marks := make([]string, len(ids))
	for i, id := range ids {
		args[i] = id
		marks[i] = "?"
	}
	return strings.Join(marks, ","), args
}
