package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "posbridge/internal/model"
)

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

// Ping reports database liveness for readiness probes.
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) GetTenant(ctx context.Context, tenantID string) (model.Tenant, error) {
    var t model.Tenant
    var provider, locationID sql.NullString
    row := p.db.QueryRowContext(ctx, `SELECT id::text, name, pos_provider, location_id, sandbox FROM tenants WHERE id=$1`, tenantID)
    if err := row.Scan(&t.ID, &t.Name, &provider, &locationID, &t.Sandbox); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return model.Tenant{}, ErrNotFound }
        return model.Tenant{}, err
    }
    t.POSProvider = model.Provider(provider.String)
    t.LocationID = locationID.String
    return t, nil
}

func (p *Postgres) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
    if o.ID == "" { o.ID = uuid.NewString() }
    if o.Status == "" { o.Status = model.OrderPending }
    if o.PaymentStatus == "" { o.PaymentStatus = model.PaymentPending }
    itemsJSON, err := json.Marshal(o.Items)
    if err != nil { return model.Order{}, err }
    row := p.db.QueryRowContext(ctx, `INSERT INTO pos_orders (id, tenant_id, status, order_type, customer_name, customer_phone, notes, total_cents, payment_status, stripe_payment_intent_id, items)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING created_at, updated_at`,
        o.ID, o.TenantID, o.Status, o.Type, o.CustomerName, o.CustomerPhone, o.Notes, o.TotalCents, o.PaymentStatus, nullIfEmpty(o.StripePaymentIntentID), itemsJSON)
    if err := row.Scan(&o.CreatedAt, &o.UpdatedAt); err != nil { return model.Order{}, err }
    return o, nil
}

func nullIfEmpty(s string) any {
    if s == "" { return nil }
    return s
}

func (p *Postgres) GetOrder(ctx context.Context, tenantID, orderID string) (model.Order, error) {
    var o model.Order
    var itemsJSON []byte
    var externalID, confirmation, intentID sql.NullString
    var ready sql.NullTime
    row := p.db.QueryRowContext(ctx, `SELECT id::text, tenant_id::text, status, order_type, customer_name, customer_phone, notes, total_cents, payment_status, stripe_payment_intent_id, external_id, confirmation_code, estimated_ready_at, submit_attempts, items, created_at, updated_at
        FROM pos_orders WHERE tenant_id=$1 AND id=$2`, tenantID, orderID)
    var phone, notes sql.NullString
    if err := row.Scan(&o.ID, &o.TenantID, &o.Status, &o.Type, &o.CustomerName, &phone, &notes, &o.TotalCents, &o.PaymentStatus, &intentID, &externalID, &confirmation, &ready, &o.SubmitAttempts, &itemsJSON, &o.CreatedAt, &o.UpdatedAt); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return model.Order{}, ErrNotFound }
        return model.Order{}, err
    }
    o.CustomerPhone = phone.String
    o.Notes = notes.String
    o.StripePaymentIntentID = intentID.String
    o.ExternalID = externalID.String
    o.ConfirmationCode = confirmation.String
    if ready.Valid { t := ready.Time; o.EstimatedReadyAt = &t }
    if len(itemsJSON) > 0 {
        if err := json.Unmarshal(itemsJSON, &o.Items); err != nil { return model.Order{}, err }
    }
    return o, nil
}

func (p *Postgres) MarkOrderSubmitted(ctx context.Context, tenantID, orderID, externalID, confirmationCode string, estimatedReadyAt *time.Time, status model.OrderStatus) error {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return err }
    defer func(){ _ = tx.Rollback() }()
    res, err := tx.ExecContext(ctx, `UPDATE pos_orders SET external_id=$1,
        confirmation_code=COALESCE(NULLIF(confirmation_code, ''), $2),
        estimated_ready_at=$3, status=$4, updated_at=now()
        WHERE tenant_id=$5 AND id=$6`,
        externalID, confirmationCode, estimatedReadyAt, status, tenantID, orderID)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return tx.Commit()
}

func (p *Postgres) UpdateOrderStatus(ctx context.Context, tenantID, orderID string, status model.OrderStatus) error {
    res, err := p.db.ExecContext(ctx, `UPDATE pos_orders SET status=$1, updated_at=now() WHERE tenant_id=$2 AND id=$3`, status, tenantID, orderID)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

func (p *Postgres) UpdateOrderStatusByExternalID(ctx context.Context, tenantID, externalID, status string) (bool, error) {
    res, err := p.db.ExecContext(ctx, `UPDATE pos_orders SET status=$1, updated_at=now() WHERE tenant_id=$2 AND external_id=$3`, status, tenantID, externalID)
    if err != nil { return false, err }
    n, _ := res.RowsAffected()
    return n > 0, nil
}

func (p *Postgres) SetOrderPaymentStatus(ctx context.Context, tenantID, orderID string, status model.PaymentStatus) error {
    res, err := p.db.ExecContext(ctx, `UPDATE pos_orders SET payment_status=$1, updated_at=now() WHERE tenant_id=$2 AND id=$3`, status, tenantID, orderID)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

func (p *Postgres) IncrementOrderAttempts(ctx context.Context, tenantID, orderID string) (int, error) {
    var attempts int
    err := p.db.QueryRowContext(ctx, `UPDATE pos_orders SET submit_attempts=submit_attempts+1 WHERE tenant_id=$1 AND id=$2 RETURNING submit_attempts`, tenantID, orderID).Scan(&attempts)
    if errors.Is(err, sql.ErrNoRows) { return 0, ErrNotFound }
    return attempts, err
}

func (p *Postgres) ResetOrderForRetry(ctx context.Context, tenantID, orderID string) error {
    res, err := p.db.ExecContext(ctx, `UPDATE pos_orders SET status=$1, submit_attempts=0, updated_at=now() WHERE tenant_id=$2 AND id=$3`, model.OrderConfirmed, tenantID, orderID)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

func (p *Postgres) SetItemAvailability(ctx context.Context, tenantID, itemID string, available bool, at time.Time) (bool, error) {
    res, err := p.db.ExecContext(ctx, `UPDATE menu_items SET is_available=$1, availability_updated_at=$2 WHERE tenant_id=$3 AND external_id=$4`, available, at, tenantID, itemID)
    if err != nil { return false, err }
    n, _ := res.RowsAffected()
    return n > 0, nil
}

func (p *Postgres) SetModifierAvailability(ctx context.Context, tenantID, modifierID string, available bool, at time.Time) (bool, error) {
    res, err := p.db.ExecContext(ctx, `UPDATE modifiers SET is_available=$1, availability_updated_at=$2 WHERE tenant_id=$3 AND external_id=$4`, available, at, tenantID, modifierID)
    if err != nil { return false, err }
    n, _ := res.RowsAffected()
    return n > 0, nil
}

func (p *Postgres) GetModifier(ctx context.Context, tenantID, modifierID string) (model.Modifier, error) {
    var m model.Modifier
    row := p.db.QueryRowContext(ctx, `SELECT external_id, name, price_cents, is_available FROM modifiers WHERE tenant_id=$1 AND external_id=$2`, tenantID, modifierID)
    if err := row.Scan(&m.ID, &m.Name, &m.PriceCents, &m.IsAvailable); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return model.Modifier{}, ErrNotFound }
        return model.Modifier{}, err
    }
    return m, nil
}

func (p *Postgres) InsertWebhook(ctx context.Context, rec model.WebhookRecord) (model.WebhookRecord, error) {
    if rec.ID == "" { rec.ID = uuid.NewString() }
    if rec.ReceivedAt.IsZero() { rec.ReceivedAt = time.Now().UTC() }
    rec.Status = model.WebhookPending
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return model.WebhookRecord{}, err }
    defer func(){ _ = tx.Rollback() }()
    if rec.ExternalEventID != "" {
        var existing string
        err := tx.QueryRowContext(ctx, `SELECT id::text FROM pos_webhooks WHERE tenant_id=$1 AND provider=$2 AND external_event_id=$3 LIMIT 1`,
            rec.TenantID, rec.Provider, rec.ExternalEventID).Scan(&existing)
        if err == nil {
            rec.Status = model.WebhookSkipped
        } else if !errors.Is(err, sql.ErrNoRows) {
            return model.WebhookRecord{}, err
        }
    }
    _, err = tx.ExecContext(ctx, `INSERT INTO pos_webhooks (id, tenant_id, provider, event_type, payload, signature, external_event_id, status, received_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
        rec.ID, rec.TenantID, rec.Provider, rec.EventType, rec.Payload, rec.Signature, rec.ExternalEventID, rec.Status, rec.ReceivedAt)
    if err != nil { return model.WebhookRecord{}, err }
    if err := tx.Commit(); err != nil { return model.WebhookRecord{}, err }
    return rec, nil
}

func (p *Postgres) GetWebhook(ctx context.Context, id string) (model.WebhookRecord, error) {
    return scanWebhook(p.db.QueryRowContext(ctx, `SELECT id::text, tenant_id::text, provider, event_type, payload, signature, external_event_id, status, error, duration_ms, received_at, processed_at FROM pos_webhooks WHERE id=$1`, id))
}

// ClaimWebhook opens a transaction and takes a row lock so concurrent
// processing of the same record serializes.
func (p *Postgres) ClaimWebhook(ctx context.Context, id string) (WebhookClaim, error) {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return nil, err }
    rec, err := scanWebhookErr(tx.QueryRowContext(ctx, `SELECT id::text, tenant_id::text, provider, event_type, payload, signature, external_event_id, status, error, duration_ms, received_at, processed_at FROM pos_webhooks WHERE id=$1 FOR UPDATE`, id))
    if err != nil {
        _ = tx.Rollback()
        return nil, err
    }
    return &pgClaim{tx: tx, rec: rec}, nil
}

func (p *Postgres) ListPendingWebhooks(ctx context.Context, limit int) ([]model.WebhookRecord, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, tenant_id::text, provider, event_type, payload, signature, external_event_id, status, error, duration_ms, received_at, processed_at FROM pos_webhooks WHERE status='pending' ORDER BY received_at LIMIT $1`, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []model.WebhookRecord
    for rows.Next() {
        rec, err := scanWebhookErr(rows)
        if err != nil { return nil, err }
        out = append(out, rec)
    }
    return out, rows.Err()
}

type pgClaim struct {
    tx   *sql.Tx
    rec  model.WebhookRecord
    done bool
}

func (c *pgClaim) Record() model.WebhookRecord { return c.rec }

func (c *pgClaim) MarkProcessed(ctx context.Context, durationMs int64) error {
    _, err := c.tx.ExecContext(ctx, `UPDATE pos_webhooks SET status='processed', duration_ms=$1, processed_at=now() WHERE id=$2`, durationMs, c.rec.ID)
    if err != nil {
        _ = c.tx.Rollback()
        c.done = true
        return err
    }
    c.done = true
    return c.tx.Commit()
}

func (c *pgClaim) MarkFailed(ctx context.Context, errMsg string, durationMs int64) error {
    _, err := c.tx.ExecContext(ctx, `UPDATE pos_webhooks SET status='failed', error=$1, duration_ms=$2, processed_at=now() WHERE id=$3`, errMsg, durationMs, c.rec.ID)
    if err != nil {
        _ = c.tx.Rollback()
        c.done = true
        return err
    }
    c.done = true
    return c.tx.Commit()
}

func (c *pgClaim) Close() error {
    if c.done { return nil }
    c.done = true
    return c.tx.Rollback()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanWebhook(row rowScanner) (model.WebhookRecord, error) {
    rec, err := scanWebhookErr(row)
    if errors.Is(err, sql.ErrNoRows) { return model.WebhookRecord{}, ErrNotFound }
    return rec, err
}

func scanWebhookErr(row rowScanner) (model.WebhookRecord, error) {
    var rec model.WebhookRecord
    var eventType, signature, externalID, errMsg sql.NullString
    var durationMs sql.NullInt64
    var processedAt sql.NullTime
    err := row.Scan(&rec.ID, &rec.TenantID, &rec.Provider, &eventType, &rec.Payload, &signature, &externalID, &rec.Status, &errMsg, &durationMs, &rec.ReceivedAt, &processedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) { return model.WebhookRecord{}, ErrNotFound }
        return model.WebhookRecord{}, err
    }
    rec.EventType = eventType.String
    rec.Signature = signature.String
    rec.ExternalEventID = externalID.String
    rec.Error = errMsg.String
    rec.DurationMs = durationMs.Int64
    if processedAt.Valid { t := processedAt.Time; rec.ProcessedAt = &t }
    return rec, nil
}
