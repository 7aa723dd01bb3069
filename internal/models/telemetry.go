package models

// Frame 解码后的单帧遥测数据（由外部 blackbox 解码器产生）
//
// 时间戳单位为微秒，按帧序单调递增
// 三轴数组下标顺序固定为 roll=0, pitch=1, yaw=2
type Frame struct {
	TimeUs   int64      `json:"time_us"`
	Gyro     [3]float64 `json:"gyro"`     // 滤波后的陀螺仪角速度（deg/s）
	Setpoint [3]float64 `json:"setpoint"` // 摇杆目标角速度（deg/s）
	DTerm    [3]float64 `json:"dterm"`    // PID D 项输出
	Motor    [4]float64 `json:"motor"`    // 电机输出（归一化 0..1）
	Throttle float64    `json:"throttle"` // 油门（归一化 0..1）
	VBat     float64    `json:"vbat"`     // 电池电压（V）
}

// LogMetadata 日志头部元数据（由外部解码器产生）
type LogMetadata struct {
	FirmwareVersion string  `json:"firmware_version"`
	CraftName       string  `json:"craft_name"`
	SampleRateHz    float64 `json:"sample_rate_hz"` // 为 0 时由帧时间戳推导
	CellCount       int     `json:"cell_count"`     // 电池串数，为 0 时按 4S 处理
	MotorCount      int     `json:"motor_count"`
}
