package helpers

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// EncodeBSON marshals a map into BSON bytes.
func EncodeBSON(data map[string]interface{}) ([]byte, error) {
	encoded, err := bson.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error encoding BSON: %w", err)
	}
	return encoded, nil
}

// DecodeBSON unmarshals BSON bytes back into a map.
func DecodeBSON(data []byte) (map[string]interface{}, error) {
	var decoded map[string]interface{}
	if err := bson.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("error decoding BSON: %w", err)
	}
	return decoded, nil
}
