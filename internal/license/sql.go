package license

const licenseColumns = `
    license_id,
    license_key,
    email,
    firebase_uid,
    status,
    license_type,
    max_devices,
    purchase_id,
    purchase_amount,
    purchase_date,
    updates_end_date,
    subscription_id,
    next_billing_date,
    cancelled,
    cancelled_at,
    last_validation_date,
    created_at,
    updated_at
`

const getByKeySQL = `
SELECT ` + licenseColumns + `
FROM license
WHERE license_key = ?
`

const getActiveByKeyEmailSQL = `
SELECT ` + licenseColumns + `
FROM license
WHERE license_key = ? AND email = ? AND status = 'active'
`

const getByKeyEmailSQL = `
SELECT ` + licenseColumns + `
FROM license
WHERE license_key = ? AND email = ?
`

const getByEmailSQL = `
SELECT ` + licenseColumns + `
FROM license
WHERE email = ?
ORDER BY created_at DESC
`

const getBySubscriptionIDSQL = `
SELECT ` + licenseColumns + `
FROM license
WHERE subscription_id = ?
`

const getByPurchaseIDSQL = `
SELECT ` + licenseColumns + `
FROM license
WHERE purchase_id = ?
`

const createLicenseSQL = `
INSERT INTO license (
    license_key,
    email,
    status,
    license_type,
    max_devices,
    purchase_id,
    purchase_amount,
    purchase_date,
    updates_end_date,
    subscription_id,
    next_billing_date
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateNextBillingDateSQL = `
UPDATE license
SET next_billing_date = ?, updated_at = CURRENT_TIMESTAMP
WHERE license_id = ?
`

const updateSubscriptionPlanSQL = `
UPDATE license
SET license_type = ?, next_billing_date = ?, updated_at = CURRENT_TIMESTAMP
WHERE license_id = ?
`

const markCancelledSQL = `
UPDATE license
SET cancelled = 1, cancelled_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE license_id = ? AND cancelled = 0
`

const revokeSQL = `
UPDATE license
SET status = 'revoked', updated_at = CURRENT_TIMESTAMP
WHERE license_id = ?
`

const setFirebaseUIDSQL = `
UPDATE license
SET firebase_uid = ?, updated_at = CURRENT_TIMESTAMP
WHERE license_id = ?
`

const touchValidationSQL = `
UPDATE license
SET last_validation_date = ?, updated_at = CURRENT_TIMESTAMP
WHERE license_id = ?
`
