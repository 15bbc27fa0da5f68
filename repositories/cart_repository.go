package repositories

import (
	"context"
	"fmt"
	"strconv"

	"cretan-guru/config"
	"cretan-guru/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type CartRepository struct {
	db *pgxpool.Pool
}

func NewCartRepository() *CartRepository {
	return &CartRepository{db: config.DB}
}

// ownerColumn maps an owner key onto its column; the two columns are never both set on a row.
func ownerColumn(owner models.OwnerKey) (string, error) {
	switch owner.Kind {
	case models.OwnerSession:
		return "owner_session_id", nil
	case models.OwnerUser:
		return "owner_user_id", nil
	default:
		return "", fmt.Errorf("unknown owner kind %q", owner.Kind)
	}
}

func (r *CartRepository) SelectLinesForOwner(ctx context.Context, owner models.OwnerKey) ([]models.CartLine, error) {
	col, err := ownerColumn(owner)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT ci.id, ci.product_id, p.name, COALESCE(p.image_url, ''), p.price::text, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.%s = $1
		ORDER BY ci.created_at, ci.id`, col)

	rows, err := r.db.Query(ctx, query, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("select cart lines: %w", err)
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		var (
			rowID int64
			price string
			line  models.CartLine
		)
		if err := rows.Scan(&rowID, &line.ProductID, &line.Name, &line.ImageURL, &price, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		line.UnitPrice, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse price of %s: %w", line.ProductID, err)
		}
		line.RemoteRowID = strconv.FormatInt(rowID, 10)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return lines, nil
}

// UpsertLine writes the line's full quantity, relying on the per-owner partial
// unique index so a product never gets a second row.
func (r *CartRepository) UpsertLine(ctx context.Context, owner models.OwnerKey, productID string, quantity int) (string, error) {
	col, err := ownerColumn(owner)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf(`
		INSERT INTO cart_items (%[1]s, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (%[1]s, product_id) WHERE %[1]s IS NOT NULL
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
		RETURNING id`, col)

	var rowID int64
	if err := r.db.QueryRow(ctx, query, owner.ID, productID, quantity).Scan(&rowID); err != nil {
		return "", fmt.Errorf("upsert cart line: %w", err)
	}
	return strconv.FormatInt(rowID, 10), nil
}

func (r *CartRepository) UpdateLineQuantity(ctx context.Context, owner models.OwnerKey, productID string, quantity int) error {
	col, err := ownerColumn(owner)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE %s = $2 AND product_id = $3`, col)
	tag, err := r.db.Exec(ctx, query, quantity, owner.ID, productID)
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update cart line %s: %w", productID, ErrNotFound)
	}
	return nil
}

func (r *CartRepository) DeleteLine(ctx context.Context, owner models.OwnerKey, productID string) error {
	col, err := ownerColumn(owner)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM cart_items WHERE %s = $1 AND product_id = $2`, col)
	if _, err := r.db.Exec(ctx, query, owner.ID, productID); err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}

func (r *CartRepository) DeleteAllLines(ctx context.Context, owner models.OwnerKey) error {
	col, err := ownerColumn(owner)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM cart_items WHERE %s = $1`, col)
	if _, err := r.db.Exec(ctx, query, owner.ID); err != nil {
		return fmt.Errorf("clear cart lines: %w", err)
	}
	return nil
}

// MergeOwner re-keys every row of from onto to inside one transaction, summing
// quantities where both owners hold the same product. It returns the number of
// rows moved.
func (r *CartRepository) MergeOwner(ctx context.Context, from, to models.OwnerKey) (int, error) {
	fromCol, err := ownerColumn(from)
	if err != nil {
		return 0, err
	}
	toCol, err := ownerColumn(to)
	if err != nil {
		return 0, err
	}
	if from == to {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := fmt.Sprintf(`
		INSERT INTO cart_items (%[2]s, product_id, quantity, created_at, updated_at)
		SELECT $2, product_id, quantity, created_at, NOW()
		FROM cart_items
		WHERE %[1]s = $1
		ON CONFLICT (%[2]s, product_id) WHERE %[2]s IS NOT NULL
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()`, fromCol, toCol)

	tag, err := tx.Exec(ctx, insert, from.ID, to.ID)
	if err != nil {
		return 0, fmt.Errorf("merge cart lines: %w", err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM cart_items WHERE %s = $1`, fromCol), from.ID); err != nil {
		return 0, fmt.Errorf("delete merged cart lines: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit merge: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
