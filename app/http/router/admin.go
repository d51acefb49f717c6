// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seakee/jobstore/model"
)

func (core *Core) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"instanceId": core.Store.InstanceID()})
}

func (core *Core) listJobGroups(c *gin.Context) {
	keys, err := core.Store.GetJobKeys(c.Request.Context(), model.AnyGroup())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": keys})
}

func (core *Core) getJob(c *gin.Context) {
	key := model.NewKey(c.Param("group"), c.Param("name"))
	job, found, err := core.Store.GetJob(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (core *Core) listTriggerGroups(c *gin.Context) {
	keys, err := core.Store.GetTriggerKeys(c.Request.Context(), model.AnyGroup())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"triggers": keys})
}

func (core *Core) getTrigger(c *gin.Context) {
	key := model.NewKey(c.Param("group"), c.Param("name"))
	trigger, found, err := core.Store.GetTrigger(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "trigger not found"})
		return
	}
	c.JSON(http.StatusOK, trigger)
}

func (core *Core) pausedGroups(c *gin.Context) {
	ctx := c.Request.Context()
	triggerGroups, err := core.Store.PausedTriggerGroups(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	jobGroups, err := core.Store.PausedJobGroups(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"triggerGroups": triggerGroups, "jobGroups": jobGroups})
}

func (core *Core) stats(c *gin.Context) {
	ctx := c.Request.Context()
	jobCount, err := core.Store.CountJobs(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	triggerCount, err := core.Store.CountTriggers(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobCount, "triggers": triggerCount})
}
