package analyzer

import (
	"math"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
)

const (
	// 检测窗口长度：500ms（微秒）
	windowDurationUs = 500_000

	// 样本少于该数的窗口不参与统计
	minWindowFrames = 32
)

// window 一个检测窗口：帧下标半开区间 [Start, End)
type window struct {
	Start   int
	End     int
	StartUs int64
	EndUs   int64
}

// Frames 窗口覆盖的帧切片
func (w window) Frames(t *telemetry) []models.Frame {
	return t.frames[w.Start:w.End]
}

// telemetry 单次分析的只读遥测快照与预计算的窗口划分
type telemetry struct {
	frames     []models.Frame
	meta       models.LogMetadata
	sampleRate float64 // Hz
	windows    []window
}

// newTelemetry 构建遥测上下文：推导采样率并划分不重叠的检测窗口
func newTelemetry(frames []models.Frame, meta models.LogMetadata) *telemetry {
	t := &telemetry{frames: frames, meta: meta}
	if len(frames) < 2 {
		return t
	}

	t.sampleRate = meta.SampleRateHz
	if t.sampleRate <= 0 {
		spanUs := frames[len(frames)-1].TimeUs - frames[0].TimeUs
		if spanUs > 0 {
			t.sampleRate = float64(len(frames)-1) / (float64(spanUs) / 1e6)
		}
	}

	start := 0
	for start < len(frames) {
		limitUs := frames[start].TimeUs + windowDurationUs
		end := start
		for end < len(frames) && frames[end].TimeUs < limitUs {
			end++
		}
		if end-start >= minWindowFrames {
			t.windows = append(t.windows, window{
				Start:   start,
				End:     end,
				StartUs: frames[start].TimeUs,
				EndUs:   frames[end-1].TimeUs,
			})
		}
		start = end
	}
	return t
}

// samples 提取窗口内每帧的一个标量序列
func (t *telemetry) samples(w window, extract func(models.Frame) float64) []float64 {
	out := make([]float64, 0, w.End-w.Start)
	for _, f := range w.Frames(t) {
		out = append(out, extract(f))
	}
	return out
}

// gyroSamples 窗口内某轴的陀螺仪序列
func (t *telemetry) gyroSamples(w window, axis models.Axis) []float64 {
	return t.samples(w, func(f models.Frame) float64 { return f.Gyro[axis] })
}

// motorCount 电机数量，元数据缺省时按四轴处理
func (t *telemetry) motorCount() int {
	if t.meta.MotorCount > 0 && t.meta.MotorCount <= 4 {
		return t.meta.MotorCount
	}
	return 4
}

// dominantDisturbanceAxis 窗口内残差 RMS 最大的轴（持平取 roll 优先）
//
// 用于为本身与轴无关的问题（电机、电压）确定归属轴
func (t *telemetry) dominantDisturbanceAxis(w window) models.Axis {
	best := models.AxisRoll
	bestRMS := -1.0
	for _, axis := range models.AllAxes() {
		r := rms(residuals(t.gyroSamples(w, axis)))
		if r > bestRMS {
			best = axis
			bestRMS = r
		}
	}
	return best
}

// --- 统计辅助 ---

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func rms(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// residuals 去均值序列
func residuals(xs []float64) []float64 {
	m := mean(xs)
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x - m
	}
	return out
}

func peakAbs(xs []float64) float64 {
	peak := 0.0
	for _, x := range xs {
		if a := math.Abs(x); a > peak {
			peak = a
		}
	}
	return peak
}

// dominantFrequency 在 [fminHz, fmaxHz] 频段内扫描主频
//
// 朴素 DFT，步进 2Hz（与 500ms 窗口的频率分辨率一致）
// 返回主频与对应幅值；频段无效或样本不足时返回 (0, 0)
func dominantFrequency(xs []float64, sampleRate, fminHz, fmaxHz float64) (float64, float64) {
	n := len(xs)
	if n < minWindowFrames || sampleRate <= 0 {
		return 0, 0
	}
	nyquist := sampleRate / 2
	if fmaxHz > nyquist {
		fmaxHz = nyquist
	}
	if fminHz >= fmaxHz {
		return 0, 0
	}

	bestFreq, bestAmp := 0.0, 0.0
	for f := fminHz; f <= fmaxHz; f += 2 {
		re, im := 0.0, 0.0
		for i, x := range xs {
			phase := 2 * math.Pi * f * float64(i) / sampleRate
			re += x * math.Cos(phase)
			im -= x * math.Sin(phase)
		}
		amp := 2 * math.Sqrt(re*re+im*im) / float64(n)
		if amp > bestAmp {
			bestFreq, bestAmp = f, amp
		}
	}
	return bestFreq, bestAmp
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
