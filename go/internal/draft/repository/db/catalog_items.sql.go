package db

import (
	"context"
)

const listCatalogItems = `
SELECT id, name, category, grade, price
FROM catalog_items
ORDER BY id
`

func (q *Queries) ListCatalogItems(ctx context.Context) ([]CatalogItem, error) {
	rows, err := q.db.QueryContext(ctx, listCatalogItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CatalogItem
	for rows.Next() {
		var i CatalogItem
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Category,
			&i.Grade,
			&i.Price,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
