package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/docsheet/internal/common"
	"github.com/joseph-ayodele/docsheet/internal/entity"
)

func (a *API) edit(c *gin.Context, fn func(entity.ExtractedData) (entity.ExtractedData, error)) {
	r, err := a.ws.Edit(c.Param("id"), fn)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// indexParams parses the named path params as non-negative integers.
func indexParams(c *gin.Context, names ...string) ([]int, bool) {
	out := make([]int, len(names))
	for i, n := range names {
		v, err := strconv.Atoi(c.Param(n))
		if err != nil || v < 0 {
			respondError(c, common.InvalidInputf("%s must be a non-negative integer", n))
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func (a *API) handleReplaceData(c *gin.Context) {
	var payload entity.ExtractedData
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}
	r, err := a.ws.ReplaceData(c.Param("id"), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type fieldPayload struct {
	Label string            `json:"label"`
	Value entity.FieldValue `json:"value"`
}

func (a *API) handleAddField(c *gin.Context) {
	var payload fieldPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}
	a.edit(c, func(d entity.ExtractedData) (entity.ExtractedData, error) {
		return d.AddField(payload.Label, payload.Value), nil
	})
}

func (a *API) handleSetField(c *gin.Context) {
	idx, ok := indexParams(c, "idx")
	if !ok {
		return
	}
	var payload fieldPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}
	a.edit(c, func(d entity.ExtractedData) (entity.ExtractedData, error) {
		return d.SetField(idx[0], payload.Label, payload.Value)
	})
}

func (a *API) handleRemoveField(c *gin.Context) {
	idx, ok := indexParams(c, "idx")
	if !ok {
		return
	}
	a.edit(c, func(d entity.ExtractedData) (entity.ExtractedData, error) {
		return d.RemoveField(idx[0])
	})
}

func (a *API) handleAddTable(c *gin.Context) {
	var payload struct {
		Name    string   `json:"name"`
		Headers []string `json:"headers"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}
	a.edit(c, func(d entity.ExtractedData) (entity.ExtractedData, error) {
		return d.AddTable(payload.Name, payload.Headers), nil
	})
}

func (a *API) handleAddRow(c *gin.Context) {
	idx, ok := indexParams(c, "t")
	if !ok {
		return
	}
	a.edit(c, func(d entity.ExtractedData) (entity.ExtractedData, error) {
		return d.AddRow(idx[0])
	})
}

func (a *API) handleSetCell(c *gin.Context) {
	idx, ok := indexParams(c, "t", "r", "c")
	if !ok {
		return
	}
	var payload struct {
		Value entity.FieldValue `json:"value"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}
	a.edit(c, func(d entity.ExtractedData) (entity.ExtractedData, error) {
		return d.SetCell(idx[0], idx[1], idx[2], payload.Value.String())
	})
}

func (a *API) handleRemoveRow(c *gin.Context) {
	idx, ok := indexParams(c, "t", "r")
	if !ok {
		return
	}
	a.edit(c, func(d entity.ExtractedData) (entity.ExtractedData, error) {
		return d.RemoveRow(idx[0], idx[1])
	})
}
