package model

import (
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cyder-hub/cyder-gateway/common/config"
	"github.com/cyder-hub/cyder-gateway/common/logger"
)

// DB is the process-wide reference-data connection. The gateway treats it
// as read-mostly: operators manage providers/models/policies out of band
// (migration tooling, admin API) and the relay path only ever reads it,
// caching aggressively in front via the cache package.
var DB *gorm.DB

// InitDB opens the reference database (SQLite by default, or MySQL/Postgres
// when config.SQLDSN is set) and runs AutoMigrate, the way the teacher's
// InitDB/chooseDB picks a driver from the DSN's shape.
func InitDB() error {
	db, err := chooseDB(config.SQLDSN)
	if err != nil {
		return errors.Wrap(err, "open reference database")
	}
	DB = db

	logger.Logger.Info("running database migration")
	if err := DB.AutoMigrate(
		&SystemApiKey{},
		&Provider{},
		&ProviderApiKey{},
		&Model{},
		&ModelAlias{},
		&AccessControlPolicy{},
		&AccessControlRule{},
		&CustomField{},
		&BillingPlan{},
		&PriceRule{},
		&RequestLog{},
	); err != nil {
		return errors.Wrap(err, "automigrate reference schema")
	}

	return nil
}

func chooseDB(dsn string) (*gorm.DB, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"):
		logger.Logger.Info("using PostgreSQL as reference database")
		return gorm.Open(postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), &gorm.Config{PrepareStmt: true})
	case dsn != "":
		logger.Logger.Info("using MySQL as reference database")
		return gorm.Open(mysql.Open(dsn), &gorm.Config{PrepareStmt: true})
	default:
		logger.Logger.Info("SQL_DSN not set, using SQLite as reference database")
		path := fmt.Sprintf("%s?_busy_timeout=5000", config.SQLiteDSN)
		return gorm.Open(sqlite.Open(path), &gorm.Config{PrepareStmt: true})
	}
}

// CloseDB releases the underlying *sql.DB connection pool.
func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return errors.WithStack(err)
	}
	return sqlDB.Close()
}

// Store is the narrow read contract the cache loaders use to go from a
// cache miss to a fresh row set. It is implemented by *GormStore; tests
// substitute a fake.
type Store interface {
	GetSystemApiKeyByKey(key string) (*SystemApiKey, error)
	GetSystemApiKeyByRef(ref string) (*SystemApiKey, error)
	GetProviderByID(id int64) (*Provider, error)
	GetProviderByKey(key string) (*Provider, error)
	GetProviderApiKeysByProvider(providerID int64) ([]ProviderApiKey, error)
	GetModelByID(id int64) (*Model, error)
	GetModelByProviderAndName(providerID int64, name string) (*Model, error)
	GetModelAliasByName(alias string) (*ModelAlias, error)
	GetAccessControlPolicy(id int64) (*AccessControlPolicy, error)
	GetCustomFieldsByProvider(providerID int64) ([]CustomField, error)
	GetCustomFieldsByModel(modelID int64) ([]CustomField, error)
	GetBillingPlan(id int64) (*BillingPlan, error)
	InsertRequestLog(log *RequestLog) error
	UpdateRequestLog(log *RequestLog) error

	ListEnabledProviders() ([]Provider, error)
	ListEnabledModelsByProvider(providerID int64) ([]Model, error)
	ListEnabledModelAliases() ([]ModelAlias, error)
}

// GormStore is the gorm-backed Store implementation used in production.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an opened *gorm.DB as a Store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetSystemApiKeyByKey(key string) (*SystemApiKey, error) {
	var k SystemApiKey
	if err := s.db.Where("key = ? AND enabled = ?", key, true).First(&k).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &k, nil
}

func (s *GormStore) GetSystemApiKeyByRef(ref string) (*SystemApiKey, error) {
	var k SystemApiKey
	if err := s.db.Where("ref = ? AND enabled = ?", ref, true).First(&k).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &k, nil
}

func (s *GormStore) GetProviderByID(id int64) (*Provider, error) {
	var p Provider
	if err := s.db.Where("id = ? AND enabled = ?", id, true).First(&p).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &p, nil
}

func (s *GormStore) GetProviderByKey(key string) (*Provider, error) {
	var p Provider
	if err := s.db.Where("provider_key = ? AND enabled = ?", key, true).First(&p).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &p, nil
}

func (s *GormStore) GetProviderApiKeysByProvider(providerID int64) ([]ProviderApiKey, error) {
	var keys []ProviderApiKey
	if err := s.db.Where("provider_id = ? AND enabled = ?", providerID, true).Find(&keys).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return keys, nil
}

func (s *GormStore) GetModelByID(id int64) (*Model, error) {
	var m Model
	if err := s.db.Where("id = ? AND enabled = ?", id, true).First(&m).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &m, nil
}

func (s *GormStore) GetModelByProviderAndName(providerID int64, name string) (*Model, error) {
	var m Model
	if err := s.db.Where("provider_id = ? AND model_name = ? AND enabled = ?", providerID, name, true).First(&m).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &m, nil
}

func (s *GormStore) GetModelAliasByName(alias string) (*ModelAlias, error) {
	var a ModelAlias
	if err := s.db.Where("alias = ? AND enabled = ?", alias, true).First(&a).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &a, nil
}

func (s *GormStore) GetAccessControlPolicy(id int64) (*AccessControlPolicy, error) {
	var p AccessControlPolicy
	if err := s.db.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	if err := s.db.Where("policy_id = ?", id).Order("priority desc").Find(&p.Rules).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return &p, nil
}

func (s *GormStore) GetCustomFieldsByProvider(providerID int64) ([]CustomField, error) {
	var fields []CustomField
	if err := s.db.Where("provider_id = ? AND enabled = ?", providerID, true).Find(&fields).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return fields, nil
}

func (s *GormStore) GetCustomFieldsByModel(modelID int64) ([]CustomField, error) {
	var fields []CustomField
	if err := s.db.Where("model_id = ? AND enabled = ?", modelID, true).Find(&fields).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return fields, nil
}

func (s *GormStore) GetBillingPlan(id int64) (*BillingPlan, error) {
	var p BillingPlan
	if err := s.db.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	if err := s.db.Where("billing_plan_id = ?", id).Find(&p.PriceRules).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return &p, nil
}

func (s *GormStore) InsertRequestLog(log *RequestLog) error {
	if err := s.db.Create(log).Error; err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// UpdateRequestLog persists the row's terminal state. It is called exactly
// once per request, after InsertRequestLog, to transition PENDING to its
// final SUCCESS/ERROR/CANCELLED status.
func (s *GormStore) UpdateRequestLog(log *RequestLog) error {
	if err := s.db.Model(&RequestLog{}).Where("id = ?", log.ID).Updates(log).Error; err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// ListEnabledProviders backs the models-catalog endpoint, which must
// enumerate every provider rather than resolve one by key.
func (s *GormStore) ListEnabledProviders() ([]Provider, error) {
	var providers []Provider
	if err := s.db.Where("enabled = ?", true).Find(&providers).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return providers, nil
}

func (s *GormStore) ListEnabledModelsByProvider(providerID int64) ([]Model, error) {
	var models []Model
	if err := s.db.Where("provider_id = ? AND enabled = ?", providerID, true).Find(&models).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return models, nil
}

func (s *GormStore) ListEnabledModelAliases() ([]ModelAlias, error) {
	var aliases []ModelAlias
	if err := s.db.Where("enabled = ?", true).Find(&aliases).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return aliases, nil
}

// ErrNotFound is returned by Store lookups that find no row. Cache loaders
// translate it into a CacheEntry negative marker rather than propagating it.
var ErrNotFound = errors.New("not found")

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return errors.WithStack(err)
}
