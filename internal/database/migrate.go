package database

import (
	"context"
	"database/sql"
	"fmt"
)

// identityTableSQL is shared by the three identity tables; they only differ
// in name and in the status values the application writes.
const identityTableSQL = `
CREATE TABLE IF NOT EXISTS %s (
    id                 CHAR(36)     NOT NULL PRIMARY KEY,
    name               VARCHAR(120) NOT NULL DEFAULT '',
    country_code       VARCHAR(8)   NOT NULL,
    phone              VARCHAR(20)  NOT NULL,
    status             VARCHAR(20)  NOT NULL,
    refresh_token_hash CHAR(64)     NULL,
    device_token       VARCHAR(512) NULL,
    created_at         DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_%s_phone (country_code, phone),
    KEY idx_%s_refresh (refresh_token_hash)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createAddressesSQL = `
CREATE TABLE IF NOT EXISTS addresses (
    id         CHAR(36)     NOT NULL PRIMARY KEY,
    user_id    CHAR(36)     NOT NULL,
    line1      VARCHAR(255) NOT NULL,
    line2      VARCHAR(255) NOT NULL DEFAULT '',
    city       VARCHAR(100) NOT NULL,
    state      VARCHAR(100) NOT NULL,
    pincode    VARCHAR(12)  NOT NULL,
    landmark   VARCHAR(255) NOT NULL DEFAULT '',
    created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    KEY idx_addresses_user (user_id),
    CONSTRAINT fk_addresses_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createServicesSQL = `
CREATE TABLE IF NOT EXISTS services (
    id         CHAR(36)      NOT NULL PRIMARY KEY,
    name       VARCHAR(120)  NOT NULL,
    price      DECIMAL(12,2) NOT NULL DEFAULT 0,
    is_active  TINYINT(1)    NOT NULL DEFAULT 1,
    created_at DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_services_name (name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createBookingsSQL = `
CREATE TABLE IF NOT EXISTS bookings (
    id               CHAR(36)      NOT NULL PRIMARY KEY,
    booking_id       VARCHAR(40)   NOT NULL,
    user_id          CHAR(36)      NOT NULL,
    name             VARCHAR(120)  NOT NULL,
    service_details  JSON          NOT NULL,
    address          JSON          NOT NULL,
    slot             VARCHAR(20)   NOT NULL,
    date             DATE          NOT NULL,
    amount           DECIMAL(12,2) NOT NULL DEFAULT 0,
    status           VARCHAR(30)   NOT NULL,
    assigned_to      CHAR(36)      NULL,
    order_items      JSON          NOT NULL,
    coupon_code      VARCHAR(40)   NOT NULL DEFAULT '',
    coupon_details   JSON          NULL,
    discount_amount  DECIMAL(12,2) NOT NULL DEFAULT 0,
    discounted_total DECIMAL(12,2) NOT NULL DEFAULT 0,
    is_coupon_apply  TINYINT       NOT NULL DEFAULT 0,
    created_at       DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_bookings_booking_id (booking_id),
    KEY idx_bookings_user (user_id),
    KEY idx_bookings_assigned (assigned_to),
    KEY idx_bookings_status_date (status, date)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createCouponsSQL = `
CREATE TABLE IF NOT EXISTS coupons (
    id          CHAR(36)      NOT NULL PRIMARY KEY,
    coupon_code VARCHAR(40)   NOT NULL,
    discount    DECIMAL(5,2)  NOT NULL,
    min_value   DECIMAL(12,2) NOT NULL DEFAULT 0,
    expiry_date DATETIME      NOT NULL,
    is_active   TINYINT(1)    NOT NULL DEFAULT 1,
    created_at  DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_coupons_code (coupon_code)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createAttendancesSQL = `
CREATE TABLE IF NOT EXISTS attendances (
    id            CHAR(36)    NOT NULL PRIMARY KEY,
    technician_id CHAR(36)    NOT NULL,
    day           CHAR(10)    NOT NULL,
    check_in_at   DATETIME    NOT NULL,
    check_out_at  DATETIME    NULL,
    status        VARCHAR(20) NOT NULL,
    created_at    DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_attendance_day (technician_id, day)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createLeavesSQL = `
CREATE TABLE IF NOT EXISTS leaves (
    id            CHAR(36)     NOT NULL PRIMARY KEY,
    technician_id CHAR(36)     NOT NULL,
    day           CHAR(10)     NOT NULL,
    reason        VARCHAR(500) NOT NULL DEFAULT '',
    status        VARCHAR(20)  NOT NULL,
    created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_leave_day (technician_id, day)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createToolRequestsSQL = `
CREATE TABLE IF NOT EXISTS tool_requests (
    id            CHAR(36)     NOT NULL PRIMARY KEY,
    technician_id CHAR(36)     NOT NULL,
    tool_name     VARCHAR(120) NOT NULL,
    quantity      INT          NOT NULL DEFAULT 1,
    reason        VARCHAR(500) NOT NULL DEFAULT '',
    status        VARCHAR(20)  NOT NULL,
    created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    KEY idx_tool_requests_technician (technician_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createCountersSQL = `
CREATE TABLE IF NOT EXISTS counters (
    name  VARCHAR(40) NOT NULL PRIMARY KEY,
    value BIGINT      NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// Statements returns the DDL in dependency order.
func Statements() []string {
	stmts := make([]string, 0, 12)
	for _, table := range []string{"admins", "users", "technicians"} {
		stmts = append(stmts, fmt.Sprintf(identityTableSQL, table, table, table))
	}
	return append(stmts,
		createAddressesSQL,
		createServicesSQL,
		createBookingsSQL,
		createCouponsSQL,
		createAttendancesSQL,
		createLeavesSQL,
		createToolRequestsSQL,
		createCountersSQL,
	)
}

// Migrate creates any missing table. Existing tables are left untouched.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
