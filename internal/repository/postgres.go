package repository

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/valueid/valueid-client/internal/models"
	"github.com/valueid/valueid-client/pkg/logger"
)

// PostgresDB persists the mock backend's orders and finance ledger.
type PostgresDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(dsn string, logger *logger.Logger) (*PostgresDB, error) {
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %s", err)
	}

	if err := db.AutoMigrate(&OrderRow{}, &FinanceRow{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %s", err)
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return &PostgresDB{Conn: db, logger: logger}, nil
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %s", err)
	}
	return sqlDB.Close()
}

// SaveOrder inserts the order or overwrites its status columns.
func (db *PostgresDB) SaveOrder(order models.Order) error {
	row := orderRow(order)
	err := db.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "tx_hash"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save order %s: %s", order.ID, err)
	}
	return nil
}

func (db *PostgresDB) SaveFinance(record models.FinanceRecord) error {
	row := financeRow(record)
	if err := db.Conn.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save finance record %s: %s", record.ID, err)
	}
	return nil
}

// Orders returns every stored order, oldest first.
func (db *PostgresDB) Orders() ([]models.Order, error) {
	var rows []OrderRow
	if err := db.Conn.Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load orders: %s", err)
	}
	out := make([]models.Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// FinanceRecords returns the ledger in insertion order.
func (db *PostgresDB) FinanceRecords() ([]models.FinanceRecord, error) {
	var rows []FinanceRow
	if err := db.Conn.Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load finance records: %s", err)
	}
	out := make([]models.FinanceRecord, 0, len(rows))
	for _, r := range rows {
		record, err := r.model()
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}
