package webhook

const getRecordSQL = `
SELECT webhook_id, event_type, status, payload, processed_at
FROM webhook_event
WHERE webhook_id = ?
`

const insertRecordSQL = `
INSERT INTO webhook_event (webhook_id, event_type, status, payload, processed_at)
VALUES (?, ?, ?, ?, ?)
`

const recentRecordsSQL = `
SELECT webhook_id, event_type, status, payload, processed_at
FROM webhook_event
ORDER BY processed_at DESC
LIMIT ?
`
