package policy

// Policy is the per-symbol engine configuration. Instances are
// immutable after resolution; the engine receives a value copy.
type Policy struct {
	// Spread resolution
	UseDynamicSpread  bool    `yaml:"use_dynamic_spread"`
	BandNearThreshold float64 `yaml:"band_near_threshold"` // atr_pct below this is "near"
	BandMidThreshold  float64 `yaml:"band_mid_threshold"`  // atr_pct below this is "mid"
	SpreadNearPct     float64 `yaml:"spread_near_pct"`
	SpreadMidPct      float64 `yaml:"spread_mid_pct"`
	SpreadFarPct      float64 `yaml:"spread_far_pct"`
	FixedSpreadPct    float64 `yaml:"fixed_spread_pct"` // used when dynamic spread is off
	RSIAdjustEnabled  bool    `yaml:"rsi_adjust_enabled"`
	RSIAdjustFactor   float64 `yaml:"rsi_adjust_factor"`

	// Grid
	GridEnabled                 bool    `yaml:"grid_enabled"`
	GridLevelsPerSide           int     `yaml:"grid_levels_per_side"`
	GridKillReplaceThresholdPct float64 `yaml:"grid_kill_replace_threshold_pct"`
	GridMinSecondsBetween       int64   `yaml:"grid_min_seconds_between"`

	// DCA accumulation
	DCAEnabled                    bool    `yaml:"dca_enabled"`
	DCARSIThreshold               float64 `yaml:"dca_rsi_threshold"`
	DCAUseEMAGate                 bool    `yaml:"dca_use_ema_gate"`
	DCACooldownBars               int     `yaml:"dca_cooldown_bars"`
	DCAMinDistanceFromLastFillPct float64 `yaml:"dca_min_distance_from_last_fill_pct"`
	DCAPriceOffsetPct             float64 `yaml:"dca_price_offset_pct"`

	// Take profit
	TPEnabled       bool    `yaml:"tp_enabled"`
	TPRSIThreshold  float64 `yaml:"tp_rsi_threshold"`
	TPSpreadNearPct float64 `yaml:"tp_spread_near_pct"`
	TPSpreadMidPct  float64 `yaml:"tp_spread_mid_pct"`
	TPSpreadFarPct  float64 `yaml:"tp_spread_far_pct"`

	// PnL gate (thresholds are negative percentages)
	GateDegradedGapPct      float64 `yaml:"gate_degraded_gap_pct"`
	GatePausedGapPct        float64 `yaml:"gate_paused_gap_pct"`
	GateDegradedDailyPnLPct float64 `yaml:"gate_degraded_daily_pnl_pct"`
	GatePausedDailyPnLPct   float64 `yaml:"gate_paused_daily_pnl_pct"`

	// Hard stop and auto-resume
	HardStopDailyPnLPct    float64 `yaml:"hard_stop_daily_pnl_pct"`
	HardStopGapPct         float64 `yaml:"hard_stop_gap_pct"`
	AutoResumeEnabled      bool    `yaml:"auto_resume_enabled"`
	ResumeRSIThreshold     float64 `yaml:"resume_rsi_threshold"`
	ResumePriceRecoveryPct float64 `yaml:"resume_price_recovery_pct"`
	ResumeCooldownBars     int     `yaml:"resume_cooldown_bars"`

	// Order lifecycle
	OrderMaxAgeSeconds            int64   `yaml:"order_max_age_seconds"`
	OrderPriceDriftThresholdPct   float64 `yaml:"order_price_drift_threshold_pct"`
	OrderCancelOnVolatilitySpike  bool    `yaml:"order_cancel_on_volatility_spike"`
	OrderVolatilitySpikeThreshold float64 `yaml:"order_volatility_spike_threshold"`
	OrderCancelOnRSIReversal      bool    `yaml:"order_cancel_on_rsi_reversal"`
	OrderRSIReversalThreshold     float64 `yaml:"order_rsi_reversal_threshold"`

	// Fees
	MakerFeePct    float64 `yaml:"maker_fee_pct"`
	TakerFeePct    float64 `yaml:"taker_fee_pct"`
	UseBNBDiscount bool    `yaml:"use_bnb_discount"`
	BNBDiscountPct float64 `yaml:"bnb_discount_pct"`
}

// Default returns the baseline policy. Per-symbol overrides merge
// shallowly onto this.
func Default() Policy {
	return Policy{
		UseDynamicSpread:  true,
		BandNearThreshold: 1.0,
		BandMidThreshold:  2.0,
		SpreadNearPct:     0.3,
		SpreadMidPct:      0.5,
		SpreadFarPct:      0.8,
		FixedSpreadPct:    0.5,
		RSIAdjustEnabled:  true,
		RSIAdjustFactor:   0.1,

		GridEnabled:                 true,
		GridLevelsPerSide:           3,
		GridKillReplaceThresholdPct: 1.0,
		GridMinSecondsBetween:       300,

		DCAEnabled:                    true,
		DCARSIThreshold:               35,
		DCAUseEMAGate:                 true,
		DCACooldownBars:               5,
		DCAMinDistanceFromLastFillPct: 1.0,
		DCAPriceOffsetPct:             0.1,

		TPEnabled:       true,
		TPRSIThreshold:  65,
		TPSpreadNearPct: 0.5,
		TPSpreadMidPct:  0.8,
		TPSpreadFarPct:  1.2,

		GateDegradedGapPct:      -3,
		GatePausedGapPct:        -5,
		GateDegradedDailyPnLPct: -2,
		GatePausedDailyPnLPct:   -4,

		HardStopDailyPnLPct:    -5,
		HardStopGapPct:         -8,
		AutoResumeEnabled:      true,
		ResumeRSIThreshold:     40,
		ResumePriceRecoveryPct: 2.0,
		ResumeCooldownBars:     60,

		OrderMaxAgeSeconds:            300,
		OrderPriceDriftThresholdPct:   2.0,
		OrderCancelOnVolatilitySpike:  true,
		OrderVolatilitySpikeThreshold: 1.5,
		OrderCancelOnRSIReversal:      true,
		OrderRSIReversalThreshold:     20,

		MakerFeePct:    0.1,
		TakerFeePct:    0.1,
		UseBNBDiscount: false,
		BNBDiscountPct: 25,
	}
}
