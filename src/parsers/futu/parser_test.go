package futu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/username/gainledger/src/models"
)

const sampleStatement = `富途證券國際(香港)有限公司
證券月結單 2025/03
賬戶號碼: 12345678
保證金綜合帳戶

期初概覽--股票和股票期權
代碼(名稱) 市場 貨幣 數量 平均價 - 市值
BABA(ALIBABA GRP) SEHK HKD 2,000 80.00 - 160,000.00
NVDA(NVIDIA CORP) US USD 100 90.00 - 9,000.00
期初概覽--基金
GOLD(GOLD FUND) SEHK HKD 500 10.00 - 5,000.00

交易--股票和股票期權
賣出 BABA(ALIBABA
GRP)
2025031001 SEHK HKD 2025/03/10 2025/03/12 1,000 95.50 95,500.00
買入 NVDA(NVIDIA CORP)
2025031002 US USD 2025/03/15 2025/03/17 50 100.00 5,000.00
賣出 TSLA.US(TESLA INC)
2025031003 US USD 2025/03/18 2025/03/20 10 250.00 2,500.00
交易--基金
買入 GOLD(GOLD FUND)
2025031004 SEHK HKD 2025/03/19 2025/03/21 100 10.00 1,000.00
`

func TestParseAccountAndPeriod(t *testing.T) {
	t.Parallel()
	st := NewParser().Parse(sampleStatement)

	require.Equal(t, "FUTU-12345678", st.AccountID)
	require.NotNil(t, st.Period)
	require.Equal(t, models.Period{Year: 2025, Month: 3}, *st.Period)
}

func TestParseTradesUseHeaderContext(t *testing.T) {
	t.Parallel()
	st := NewParser().Parse(sampleStatement)

	// The TSLA.US cross-listing suffix is filtered and the fund section
	// terminates trade interpretation, leaving the two equity executions.
	require.Len(t, st.Trades, 2)

	sell := st.Trades[0]
	require.Equal(t, "BABA", sell.Symbol)
	require.Equal(t, models.SideSell, sell.Side)
	// Header wrapped across two physical lines; the merged parenthetical
	// concatenates without whitespace.
	require.Equal(t, "ALIBABAGRP", sell.Name)
	require.Equal(t, "HKD", sell.Currency)
	require.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), sell.TradeDate)
	require.InDelta(t, 1000, sell.Quantity, 1e-9)
	require.InDelta(t, 95.50, sell.Price, 1e-9)
	require.Equal(t, "交易:BABA", sell.Source)

	buy := st.Trades[1]
	require.Equal(t, "NVDA", buy.Symbol)
	require.Equal(t, models.SideBuy, buy.Side)
	require.Equal(t, "USD", buy.Currency)
	require.InDelta(t, 50, buy.Quantity, 1e-9)
}

func TestParseOpeningHoldings(t *testing.T) {
	t.Parallel()
	st := NewParser().Parse(sampleStatement)

	require.Len(t, st.Holdings, 2)
	require.Equal(t, "BABA", st.Holdings[0].Symbol)
	require.Equal(t, "HKD", st.Holdings[0].Currency)
	require.InDelta(t, 2000, st.Holdings[0].Quantity, 1e-9)
	require.Equal(t, "ALIBABA GRP", st.Holdings[0].Name)
	require.Equal(t, "NVDA", st.Holdings[1].Symbol)
	require.InDelta(t, 100, st.Holdings[1].Quantity, 1e-9)
}

func TestParseCollapsesOverprintedText(t *testing.T) {
	t.Parallel()
	// Bold overprinting doubles every non-numeric character. The parser
	// must undo it before any pattern matching.
	doubled := "證證券券月月結結單單  2025/03\n" +
		"賬賬戶戶號號碼碼::  12345678\n" +
		"交交易易--股股票票和和股股票票期期權權\n" +
		"賣賣出出  BABA((AA GGRRPP))\n" +
		"2025031001  SSEEHHKK  HHKKDD  2025/03/10  2025/03/12  1,000  95.50  95,500.00\n"

	st := NewParser().Parse(doubled)

	require.Equal(t, "FUTU-12345678", st.AccountID)
	require.Len(t, st.Trades, 1)
	require.Equal(t, "BABA", st.Trades[0].Symbol)
	require.Equal(t, models.SideSell, st.Trades[0].Side)
	require.InDelta(t, 1000, st.Trades[0].Quantity, 1e-9)
}

func TestParseUnrecognizedDocument(t *testing.T) {
	t.Parallel()
	st := NewParser().Parse("just some text")

	require.Equal(t, "FUTU-UNKNOWN", st.AccountID)
	require.Nil(t, st.Period)
	require.Empty(t, st.Trades)
	require.Empty(t, st.Holdings)
}
