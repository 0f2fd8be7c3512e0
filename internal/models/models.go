// Package models holds the persistence-shaped domain entities of the
// dispatcher core (spec §3): Tenant, Number, CallResult, DialerBatch,
// ScheduleConfig, Scenario, OutboundLine, User, WalletTransaction and
// BankIncomingSms.
package models

import (
    "database/sql/driver"
    "encoding/json"
    "time"
)

// JSON is a generic JSON-valued column, reused across Tenant.Settings
// and anywhere else a free-form blob is persisted.
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
    if j == nil {
        return nil, nil
    }
    return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
    if value == nil {
        *j = make(JSON)
        return nil
    }

    bytes, ok := value.([]byte)
    if !ok {
        return nil
    }

    return json.Unmarshal(bytes, j)
}

// GlobalStatus is the cross-tenant status of a Number (Invariant 2).
type GlobalStatus string

const (
    GlobalStatusActive     GlobalStatus = "ACTIVE"
    GlobalStatusComplained GlobalStatus = "COMPLAINED"
    GlobalStatusPowerOff   GlobalStatus = "POWER_OFF"
)

// CallStatus is the per-tenant outcome status taxonomy (spec §4.G).
type CallStatus string

const (
    CallStatusInQueue        CallStatus = "IN_QUEUE" // derived only, never stored
    CallStatusMissed         CallStatus = "MISSED"
    CallStatusConnected      CallStatus = "CONNECTED"
    CallStatusNotInterested  CallStatus = "NOT_INTERESTED"
    CallStatusHangup         CallStatus = "HANGUP"
    CallStatusDisconnected   CallStatus = "DISCONNECTED"
    CallStatusFailed         CallStatus = "FAILED"
    CallStatusUnknown        CallStatus = "UNKNOWN"
    CallStatusBusy           CallStatus = "BUSY"
    CallStatusPowerOff       CallStatus = "POWER_OFF"
    CallStatusBanned         CallStatus = "BANNED"
    CallStatusInboundCall    CallStatus = "INBOUND_CALL"
    CallStatusComplained     CallStatus = "COMPLAINED"
)

// BillableStatuses deduct from the tenant's wallet on report (spec §4.G).
var BillableStatuses = map[CallStatus]bool{
    CallStatusConnected:     true,
    CallStatusNotInterested: true,
    CallStatusHangup:        true,
    CallStatusUnknown:       true,
    CallStatusDisconnected:  true,
    CallStatusFailed:        true,
}

// MutableStatuses are the per-tenant latest statuses a non-superuser
// operator may still change by hand (supplemented feature #2).
var MutableStatuses = map[CallStatus]bool{
    CallStatusInQueue:  true,
    CallStatusMissed:   true,
    CallStatusBusy:     true,
    CallStatusPowerOff: true,
    CallStatusBanned:   true,
}

func IsBillable(s CallStatus) bool { return BillableStatuses[s] }

// GlobalStatusFor derives the cross-tenant Number.global_status from a
// reported per-tenant CallStatus (spec §4.G, §3 Invariant 2).
func GlobalStatusFor(s CallStatus) GlobalStatus {
    switch s {
    case CallStatusPowerOff:
        return GlobalStatusPowerOff
    case CallStatusComplained:
        return GlobalStatusComplained
    default:
        return GlobalStatusActive
    }
}

// CallDirection distinguishes dialer-initiated reports from inbound ones.
type CallDirection string

const (
    DirectionInbound  CallDirection = "INBOUND"
    DirectionOutbound CallDirection = "OUTBOUND"
)

// UserRole and AgentType classify Users.
type UserRole string

const (
    RoleAdmin UserRole = "ADMIN"
    RoleAgent UserRole = "AGENT"
)

type AgentType string

const (
    AgentTypeInbound  AgentType = "INBOUND"
    AgentTypeOutbound AgentType = "OUTBOUND"
    AgentTypeBoth     AgentType = "BOTH"
)

// WalletSource tags the origin of a WalletTransaction.
type WalletSource string

const (
    SourceManualAdjust WalletSource = "MANUAL_ADJUST"
    SourceBankMatch    WalletSource = "BANK_MATCH"
    SourceCallCharge   WalletSource = "CALL_CHARGE"
)

// Tenant is the isolated billing/scheduling/queue unit (GLOSSARY).
type Tenant struct {
    ID          int64     `json:"id" db:"id"`
    Slug        string    `json:"slug" db:"slug"`
    DisplayName string    `json:"display_name" db:"display_name"`
    Active      bool      `json:"active" db:"active"`
    Settings    JSON      `json:"settings,omitempty" db:"settings"`
    CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Number is a shared, globally-unique phone number row (spec §3).
type Number struct {
    ID                 int64        `json:"id" db:"id"`
    PhoneNumber        string       `json:"phone_number" db:"phone_number"`
    GlobalStatus       GlobalStatus `json:"global_status" db:"global_status"`
    LastCalledAt       *time.Time   `json:"last_called_at,omitempty" db:"last_called_at"`
    LastCalledTenantID *int64       `json:"last_called_tenant_id,omitempty" db:"last_called_tenant_id"`
    AssignedAt         *time.Time   `json:"assigned_at,omitempty" db:"assigned_at"`
    AssignedBatchID     *string     `json:"assigned_batch_id,omitempty" db:"assigned_batch_id"`
    CreatedAt          time.Time    `json:"created_at" db:"created_at"`
}

// CallResult is the append-only per-tenant outcome ledger (spec §3).
type CallResult struct {
    ID              int64         `json:"id" db:"id"`
    NumberID        int64         `json:"number_id" db:"number_id"`
    TenantID        *int64        `json:"tenant_id,omitempty" db:"tenant_id"`
    ScenarioID      *int64        `json:"scenario_id,omitempty" db:"scenario_id"`
    OutboundLineID  *int64        `json:"outbound_line_id,omitempty" db:"outbound_line_id"`
    CallDirection   CallDirection `json:"call_direction" db:"call_direction"`
    Status          CallStatus    `json:"status" db:"status"`
    Reason          string        `json:"reason,omitempty" db:"reason"`
    UserMessage     string        `json:"user_message,omitempty" db:"user_message"`
    AgentID         *int64        `json:"agent_id,omitempty" db:"agent_id"`
    AttemptedAt     time.Time     `json:"attempted_at" db:"attempted_at"`
}

// DialerBatch is one claim issued to a dialer (GLOSSARY: Batch).
type DialerBatch struct {
    ID           string    `json:"id" db:"id"`
    TenantID     int64     `json:"tenant_id" db:"tenant_id"`
    RequestedSize int      `json:"requested_size" db:"requested_size"`
    ReturnedSize int       `json:"returned_size" db:"returned_size"`
    CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// DialerBatchItem gives end-to-end trace from claim to report (spec §3).
type DialerBatchItem struct {
    ID                  int64      `json:"id" db:"id"`
    BatchID             string     `json:"batch_id" db:"batch_id"`
    TenantID            int64      `json:"tenant_id" db:"tenant_id"`
    NumberID            int64      `json:"number_id" db:"number_id"`
    AssignedAt          time.Time  `json:"assigned_at" db:"assigned_at"`
    ReportedAt          *time.Time `json:"reported_at,omitempty" db:"reported_at"`
    ReportBatchID       *string    `json:"report_batch_id,omitempty" db:"report_batch_id"`
    ReportCallResultID  *int64     `json:"report_call_result_id,omitempty" db:"report_call_result_id"`
    ReportAttemptedAt   *time.Time `json:"report_attempted_at,omitempty" db:"report_attempted_at"`
    ReportStatus        *string    `json:"report_status,omitempty" db:"report_status"`
    ReportScenarioID    *int64     `json:"report_scenario_id,omitempty" db:"report_scenario_id"`
    ReportOutboundLineID *int64    `json:"report_outbound_line_id,omitempty" db:"report_outbound_line_id"`
    ReportReason        *string    `json:"report_reason,omitempty" db:"report_reason"`
    CreatedAt           time.Time  `json:"created_at" db:"created_at"`
}

// ScheduleConfig is the per-tenant gate+wallet policy row (spec §3).
type ScheduleConfig struct {
    ID               int64 `json:"id" db:"id"`
    TenantID         int64 `json:"tenant_id" db:"tenant_id"`
    SkipHolidays     bool  `json:"skip_holidays" db:"skip_holidays"`
    Enabled          bool  `json:"enabled" db:"enabled"`
    DisabledByDialer bool  `json:"disabled_by_dialer" db:"disabled_by_dialer"`
    WalletBalance    int64 `json:"wallet_balance" db:"wallet_balance"`
    CostPerConnected int64 `json:"cost_per_connected" db:"cost_per_connected"`
    Version          int64 `json:"version" db:"version"`
    UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// ScheduleWindow is a same-day allowed-calling interval (spec §3, §4.D).
type ScheduleWindow struct {
    ID        int64  `json:"id" db:"id"`
    TenantID  int64  `json:"tenant_id" db:"tenant_id"`
    DayOfWeek int    `json:"day_of_week" db:"day_of_week"` // 0=Sat..6=Fri
    StartTime string `json:"start_time" db:"start_time"`   // "HH:MM:SS"
    EndTime   string `json:"end_time" db:"end_time"`
}

// Scenario is a named bot/script plus its per-connected charge (GLOSSARY).
type Scenario struct {
    ID               int64  `json:"id" db:"id"`
    TenantID         int64  `json:"tenant_id" db:"tenant_id"`
    Name             string `json:"name" db:"name"`
    DisplayName      string `json:"display_name" db:"display_name"`
    CostPerConnected *int64 `json:"cost_per_connected,omitempty" db:"cost_per_connected"`
    Active           bool   `json:"active" db:"active"`
}

// OutboundLine is an originating identity the dialer uses (GLOSSARY).
type OutboundLine struct {
    ID          int64  `json:"id" db:"id"`
    TenantID    int64  `json:"tenant_id" db:"tenant_id"`
    Phone       string `json:"phone" db:"phone"`
    DisplayName string `json:"display_name" db:"display_name"`
    Active      bool   `json:"active" db:"active"`
}

// User is an operator/agent identity, optionally scoped to a tenant.
type User struct {
    ID          int64      `json:"id" db:"id"`
    TenantID    *int64     `json:"tenant_id,omitempty" db:"tenant_id"`
    Username    string     `json:"username" db:"username"`
    Role        UserRole   `json:"role" db:"role"`
    AgentType   *AgentType `json:"agent_type,omitempty" db:"agent_type"`
    Active      bool       `json:"active" db:"active"`
    IsSuperuser bool       `json:"is_superuser" db:"is_superuser"`
    Phone       *string    `json:"phone,omitempty" db:"phone"`
    PwHash      string     `json:"-" db:"pw_hash"`
}

// WalletTransaction is the append-only signed ledger (spec §3).
type WalletTransaction struct {
    ID              int64        `json:"id" db:"id"`
    TenantID        int64        `json:"tenant_id" db:"tenant_id"`
    AmountToman     int64        `json:"amount_toman" db:"amount_toman"`
    BalanceAfter    int64        `json:"balance_after" db:"balance_after"`
    Source          WalletSource `json:"source" db:"source"`
    Note            string       `json:"note,omitempty" db:"note"`
    TransactionAt   time.Time    `json:"transaction_at" db:"transaction_at"`
    CreatedByUserID *int64       `json:"created_by_user_id,omitempty" db:"created_by_user_id"`
    BankSmsID       *int64       `json:"bank_sms_id,omitempty" db:"bank_sms_id"`
}

// BankIncomingSms is a raw or parsed bank deposit notification (spec §3, §4.C).
type BankIncomingSms struct {
    ID                  int64      `json:"id" db:"id"`
    Sender              string     `json:"sender" db:"sender"`
    Receiver            string     `json:"receiver,omitempty" db:"receiver"`
    Body                string     `json:"body" db:"body"`
    IsBankSender        bool       `json:"is_bank_sender" db:"is_bank_sender"`
    ParsedAmountToman   *int64     `json:"parsed_amount_toman,omitempty" db:"parsed_amount_toman"`
    ParsedIsCredit      *bool      `json:"parsed_is_credit,omitempty" db:"parsed_is_credit"`
    ParsedTransactionAt *time.Time `json:"parsed_transaction_at,omitempty" db:"parsed_transaction_at"`
    ParseError          string     `json:"parse_error,omitempty" db:"parse_error"`
    Consumed            bool       `json:"consumed" db:"consumed"`
    ConsumedAt          *time.Time `json:"consumed_at,omitempty" db:"consumed_at"`
    CreatedAt           time.Time  `json:"created_at" db:"created_at"`
}
