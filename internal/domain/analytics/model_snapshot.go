package analytics

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ModelKeySegmentation = "segmentation"
	ModelKeyChurn        = "churn"
)

// ModelSnapshot stores a trained artifact. ParamsJSON holds everything needed to
// score (the scaler travels with the model); MetricsJSON holds evaluation output.
type ModelSnapshot struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ModelKey string     `gorm:"column:model_key;type:varchar(64);not null;index:idx_model_snapshot,unique,priority:1" json:"model_key"`
	Version  int        `gorm:"column:version;not null;index:idx_model_snapshot,unique,priority:2" json:"version"`
	Active   bool       `gorm:"column:active;not null;default:false;index" json:"active"`
	RunID    *uuid.UUID `gorm:"type:uuid;column:run_id;index" json:"run_id,omitempty"`

	ParamsJSON  datatypes.JSON `gorm:"column:params_json" json:"params_json"`
	MetricsJSON datatypes.JSON `gorm:"column:metrics_json" json:"metrics_json"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (ModelSnapshot) TableName() string { return "model_snapshot" }
