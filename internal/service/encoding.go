package service

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// encodeJSONColumn marshals v into a JSONB column value
func encodeJSONColumn(dst *datatypes.JSON, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	*dst = datatypes.JSON(data)
	return nil
}
