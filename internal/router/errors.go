package router

import "errors"

var errMissingEntityID = errors.New("row has no entity_id")
