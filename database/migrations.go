package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS admin_users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS buildings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			address TEXT,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS room_types (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			monthly_rent REAL NOT NULL DEFAULT 0,
			description TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_number TEXT NOT NULL,
			building_id INTEGER NOT NULL,
			room_type_id INTEGER,
			floor INTEGER DEFAULT 1,
			status TEXT DEFAULT 'vacant',
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (building_id) REFERENCES buildings(id),
			FOREIGN KEY (room_type_id) REFERENCES room_types(id),
			UNIQUE(building_id, room_number)
		)`,

		`CREATE TABLE IF NOT EXISTS tenants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			national_id TEXT,
			phone TEXT,
			email TEXT,
			emergency_contact TEXT,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS contracts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id INTEGER NOT NULL,
			room_id INTEGER NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT,
			deposit REAL DEFAULT 0,
			status TEXT DEFAULT 'active',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (tenant_id) REFERENCES tenants(id),
			FOREIGN KEY (room_id) REFERENCES rooms(id)
		)`,

		`CREATE TABLE IF NOT EXISTS announcements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			body TEXT,
			is_published INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS billing_cycles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			billing_year INTEGER NOT NULL,
			billing_month INTEGER NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			due_date TEXT NOT NULL,
			status TEXT DEFAULT 'open',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(billing_year, billing_month)
		)`,

		`CREATE TABLE IF NOT EXISTS utility_types (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT UNIQUE NOT NULL,
			name_th TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS utility_rates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			utility_type_id INTEGER NOT NULL,
			rate_per_unit REAL NOT NULL CHECK(rate_per_unit >= 0),
			effective_date TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (utility_type_id) REFERENCES utility_types(id)
		)`,

		`CREATE TABLE IF NOT EXISTS meter_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER NOT NULL,
			cycle_id INTEGER NOT NULL,
			utility_type_id INTEGER NOT NULL,
			meter_start REAL NOT NULL,
			meter_end REAL NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (room_id) REFERENCES rooms(id),
			FOREIGN KEY (cycle_id) REFERENCES billing_cycles(id),
			FOREIGN KEY (utility_type_id) REFERENCES utility_types(id),
			UNIQUE(room_id, cycle_id, utility_type_id)
		)`,

		`CREATE TABLE IF NOT EXISTS bills (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			contract_id INTEGER NOT NULL,
			cycle_id INTEGER NOT NULL,
			maintenance_fee REAL NOT NULL DEFAULT 0,
			electric_amount REAL NOT NULL DEFAULT 0,
			water_amount REAL NOT NULL DEFAULT 0,
			total_amount REAL NOT NULL DEFAULT 0,
			status TEXT DEFAULT 'draft',
			rate_warning INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (contract_id) REFERENCES contracts(id),
			FOREIGN KEY (cycle_id) REFERENCES billing_cycles(id),
			UNIQUE(contract_id, cycle_id)
		)`,

		`CREATE TABLE IF NOT EXISTS admin_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			details TEXT,
			user_id INTEGER,
			ip_address TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for performance
		`CREATE INDEX IF NOT EXISTS idx_rooms_building ON rooms(building_id)`,
		`CREATE INDEX IF NOT EXISTS idx_contracts_room ON contracts(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_contracts_tenant ON contracts(tenant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status)`,
		`CREATE INDEX IF NOT EXISTS idx_rates_type_date ON utility_rates(utility_type_id, effective_date)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_room_cycle ON meter_readings(room_id, cycle_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bills_cycle ON bills(cycle_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bills_contract ON bills(contract_id)`,
	}

	// Execute all migrations
	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			// Log but don't fail on already-exists errors
			if !contains(err.Error(), "already exists") && !contains(err.Error(), "duplicate") {
				log.Printf("Migration %d warning: %v", i+1, err)
			}
		}
	}

	log.Println("Base tables and indexes created/verified")

	if err := seedUtilityTypes(db); err != nil {
		return fmt.Errorf("failed to seed utility types: %v", err)
	}

	// Create default admin
	if err := createDefaultAdmin(db); err != nil {
		return fmt.Errorf("failed to create default admin: %v", err)
	}

	log.Println("All migrations completed successfully")
	return nil
}

// seedUtilityTypes inserts the fixed electric/water reference rows.
func seedUtilityTypes(db *sql.DB) error {
	types := map[string]string{
		"electric": "ค่าไฟฟ้า",
		"water":    "ค่าน้ำประปา",
	}

	for code, nameTH := range types {
		_, err := db.Exec(`
			INSERT OR IGNORE INTO utility_types (code, name_th) VALUES (?, ?)
		`, code, nameTH)
		if err != nil {
			return err
		}
	}
	return nil
}

func createDefaultAdmin(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM admin_users").Scan(&count); err != nil {
		return err
	}

	if count == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		_, err = db.Exec(`
			INSERT INTO admin_users (username, password_hash) VALUES (?, ?)
		`, "admin", string(hash))
		if err != nil {
			return err
		}
		log.Println("Default admin user created (admin / admin123)")
	}

	return nil
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
