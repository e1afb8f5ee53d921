package strategyconfig

// Default returns the shipped ashare_riptide_v1 parameter set. The
// numeric values are empirically tuned starting points; operators are
// expected to recalibrate against their own fill history.
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID:     "ashare_riptide_v1",
			Version:        "1.0.0",
			Timezone:       "Asia/Shanghai",
			ScanCadenceSec: 60,
			CycleBudgetMs:  15000,
			ScanWorkers:    8,
			RollingWindow:  30,
		},
		Thresholds: Thresholds{
			Base: BaseThresholds{
				MinMainInflowYuan:  20_000_000, // 20M yuan
				MinInflowRatio:     0.04,
				MinPriceChange:     0.01,
				MinVolumeRatio:     2.0,
				MaxPlatformRange:   0.03,
				LiquidityFloorYuan: 100_000_000, // 100M yuan day amount
				ConfidenceFloor:    0.55,
				FreshnessBoundSec:  90,
			},
			CapTiers: CapTiers{
				MegaMinYuan:  100_000_000_000, // 100B
				LargeMinYuan: 30_000_000_000,
				MidMinYuan:   10_000_000_000,
				Mega:         CapTierScale{InflowScale: 2.5, RatioScale: 0.6, MaxRiskScore: 0.80},
				Large:        CapTierScale{InflowScale: 1.5, RatioScale: 0.8, MaxRiskScore: 0.75},
				Mid:          CapTierScale{InflowScale: 1.0, RatioScale: 1.0, MaxRiskScore: 0.70},
				Small:        CapTierScale{InflowScale: 0.5, RatioScale: 1.4, MaxRiskScore: 0.60},
			},
			Segments: SegmentMultipliers{
				Auction:    0.85,
				OpenDrive:  0.90,
				MidSession: 1.00,
				LateClose:  1.15,
				FreshnessScale: map[string]float64{
					"AUCTION":     2.0,
					"OPEN_DRIVE":  1.0,
					"MID_SESSION": 1.0,
					"LATE_CLOSE":  1.5,
				},
			},
			Sentiment: SentimentMults{
				WarmUp:     0.95,
				Divergence: 1.00,
				MainRally:  0.85,
				Climax:     1.10,
				Decline:    1.30,
				Freeze:     1.60,
			},
			Calibration: Calibration{
				Step:                 0.05,
				MinMultiplier:        0.5,
				MaxMultiplier:        2.0,
				TargetHitRate:        0.45,
				MaxFalsePositiveRate: 0.35,
			},
		},
		Inference: Inference{
			BaseFlowWeight: 0.30,
			PressureWeight: 0.45,
			StrengthWeight: 0.25,
		},
		Chain: Chain{
			TierTimeoutMs:      800,
			BreakerMaxFailures: 5,
			BreakerOpenSec:     30,
		},
		Funnels: Funnels{
			Pattern: PatternFunnel{
				MinRelPosition: 0.15,
				MaxRelPosition: 0.85,
			},
			Scoring: ScoringWeights{
				EventWeight: 0.45,
				FlowWeight:  0.35,
				RiskWeight:  0.20,
			},
		},
		Allocation: Allocation{
			CliffMultiple:     1.5,
			SinglePositionCap: 0.50,
			TierSplits: [][]float64{
				{0.90},
				{0.60, 0.40},
				{0.50, 0.30, 0.20},
			},
			PKMargin:             0.15,
			MaxDrawdownSoftLimit: 0.12,
			PerPositionDrawdown:  0.08,
			StopLossPct:          0.05,
			TakeProfitPct:        0.15,
		},
	}
}
