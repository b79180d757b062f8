package device

const deviceColumns = `
    license_id,
    device_id,
    os,
    hostname,
    arch,
    platform,
    hardware_id,
    cpus,
    memory,
    activated_at,
    last_used_at
`

const getDeviceSQL = `
SELECT ` + deviceColumns + `
FROM device
WHERE license_id = ? AND device_id = ?
`

const getForLicenseSQL = `
SELECT ` + deviceColumns + `
FROM device
WHERE license_id = ?
ORDER BY activated_at
`

const countForLicenseSQL = `
SELECT COUNT(*)
FROM device
WHERE license_id = ?
`

// Conditional insert: the row is only written while the license is under its
// device allowance. Checking and appending in one statement closes the
// check-then-act race between concurrent activations.
const insertIfUnderLimitSQL = `
INSERT INTO device (
    license_id,
    device_id,
    os,
    hostname,
    arch,
    platform,
    hardware_id,
    cpus,
    memory,
    activated_at,
    last_used_at
)
SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
WHERE (SELECT COUNT(*) FROM device WHERE license_id = ?) < ?
`

const touchLastUsedSQL = `
UPDATE device
SET last_used_at = ?
WHERE license_id = ? AND device_id = ?
`

const deleteDeviceSQL = `
DELETE FROM device
WHERE license_id = ? AND device_id = ?
`

const deleteForLicenseSQL = `
DELETE FROM device
WHERE license_id = ?
`
