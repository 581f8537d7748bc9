package models

import (
	"time"

	"gorm.io/datatypes"
)

// InterviewRecord 面试会话持久化记录。
// StateJSON保存整个执行状态的JSON快照（问答记录、RAG溯源、评估结果等），
// 其余列是便于检索的冗余字段。
type InterviewRecord struct {
	SessionID      string         `gorm:"type:char(36);primaryKey"`
	JobTitle       string         `gorm:"type:varchar(255);not null;index:idx_ir_job_title"`
	CandidateName  string         `gorm:"type:varchar(255);not null"`
	JobRole        string         `gorm:"type:varchar(100);default:'general';index:idx_ir_job_role"`
	TotalQuestions int            `gorm:"type:int;not null"`
	Status         string         `gorm:"type:varchar(50);default:'INIT';index:idx_ir_status"`
	Recommendation string         `gorm:"type:varchar(255)"`
	JDText         string         `gorm:"type:text;not null"`
	ResumeText     string         `gorm:"type:text;not null"`
	StateJSON      datatypes.JSON `gorm:"type:json"`
	CreatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (InterviewRecord) TableName() string {
	return "interview_records"
}
