package product

const productColumns = `
    product_id,
    product_name,
    license_type,
    max_devices,
    updates_years,
    is_team
`

const getProductSQL = `
SELECT ` + productColumns + `
FROM product
WHERE product_id = ?
`

const getAllProductsSQL = `
SELECT ` + productColumns + `
FROM product
ORDER BY product_name
`

const createProductSQL = `
INSERT INTO product (
    product_id,
    product_name,
    license_type,
    max_devices,
    updates_years,
    is_team
) VALUES (?, ?, ?, ?, ?, ?)
`

const updateProductSQL = `
UPDATE product
SET
    product_name = ?,
    license_type = ?,
    max_devices = ?,
    updates_years = ?,
    is_team = ?
WHERE product_id = ?
`

const deleteProductSQL = `
DELETE FROM product
WHERE product_id = ?
`
