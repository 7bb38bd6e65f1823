package models

import "time"

type AdminUser struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Building struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RoomType struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	MonthlyRent float64   `json:"monthly_rent"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Room struct {
	ID         int       `json:"id"`
	RoomNumber string    `json:"room_number"`
	BuildingID int       `json:"building_id"`
	RoomTypeID *int      `json:"room_type_id"`
	Floor      int       `json:"floor"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Tenant struct {
	ID               int       `json:"id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	NationalID       string    `json:"national_id"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	EmergencyContact string    `json:"emergency_contact"`
	Notes            string    `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Contract struct {
	ID        int       `json:"id"`
	TenantID  int       `json:"tenant_id"`
	RoomID    int       `json:"room_id"`
	StartDate string    `json:"start_date"`
	EndDate   *string   `json:"end_date"`
	Deposit   float64   `json:"deposit"`
	Status    string    `json:"status"`
	Tenant    *Tenant   `json:"tenant,omitempty"`
	Room      *Room     `json:"room,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Announcement struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BillingCycle identifies a calendar-month billing period. BillingYear is
// kept in the Buddhist era, matching how cycles are entered and displayed.
type BillingCycle struct {
	ID           int       `json:"id"`
	BillingYear  int       `json:"billing_year"`
	BillingMonth int       `json:"billing_month"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	DueDate      string    `json:"due_date"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UtilityType struct {
	ID     int    `json:"id"`
	Code   string `json:"code"`
	NameTH string `json:"name_th"`
}

type UtilityRate struct {
	ID            int       `json:"id"`
	UtilityTypeID int       `json:"utility_type_id"`
	UtilityCode   string    `json:"utility_code,omitempty"`
	RatePerUnit   float64   `json:"rate_per_unit"`
	EffectiveDate string    `json:"effective_date"`
	CreatedAt     time.Time `json:"created_at"`
}

type MeterReading struct {
	ID            int       `json:"id"`
	RoomID        int       `json:"room_id"`
	CycleID       int       `json:"cycle_id"`
	UtilityTypeID int       `json:"utility_type_id"`
	UtilityCode   string    `json:"utility_code,omitempty"`
	MeterStart    float64   `json:"meter_start"`
	MeterEnd      float64   `json:"meter_end"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Bill stores the amounts frozen at generation time. Display and export go
// through the aggregator's reconstructed view instead of these columns.
type Bill struct {
	ID             int       `json:"id"`
	ContractID     int       `json:"contract_id"`
	CycleID        int       `json:"cycle_id"`
	MaintenanceFee float64   `json:"maintenance_fee"`
	ElectricAmount float64   `json:"electric_amount"`
	WaterAmount    float64   `json:"water_amount"`
	TotalAmount    float64   `json:"total_amount"`
	Status         string    `json:"status"`
	RateWarning    bool      `json:"rate_warning"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UtilityLine is one utility's reconstructed detail on a bill view.
type UtilityLine struct {
	MeterStart float64 `json:"meter_start"`
	MeterEnd   float64 `json:"meter_end"`
	Usage      float64 `json:"usage"`
	Rate       float64 `json:"rate"`
	Amount     float64 `json:"amount"`
}

// BillView is the aggregator's reconstructed bill shape consumed by
// listings, CSV export and PDF generation.
type BillView struct {
	BillID         int          `json:"bill_id"`
	ContractID     int          `json:"contract_id"`
	CycleID        int          `json:"cycle_id"`
	RoomNumber     string       `json:"room"`
	TenantName     string       `json:"tenant"`
	MaintenanceFee float64      `json:"maintenance_fee"`
	Electric       *UtilityLine `json:"electric"`
	Water          *UtilityLine `json:"water"`
	TotalAmount    float64      `json:"total_amount"`
	RateWarning    bool         `json:"rate_warning"`
	Status         string       `json:"status"`
	DueDate        string       `json:"due_date"`
}

type AdminLog struct {
	ID        int       `json:"id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	UserID    *int      `json:"user_id"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}

type DashboardStats struct {
	TotalBuildings    int     `json:"total_buildings"`
	TotalRooms        int     `json:"total_rooms"`
	OccupiedRooms     int     `json:"occupied_rooms"`
	ActiveContracts   int     `json:"active_contracts"`
	TotalTenants      int     `json:"total_tenants"`
	CycleBillCount    int     `json:"cycle_bill_count"`
	CycleBilledTotal  float64 `json:"cycle_billed_total"`
	CycleRateWarnings int     `json:"cycle_rate_warnings"`
}
